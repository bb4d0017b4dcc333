package dto

import "github.com/spec-kit/maintenance-service/internal/domain"

// VocabularyResponse lists every enum value with its display attributes.
type VocabularyResponse struct {
	Language   string     `json:"language"`
	Statuses   []EnumView `json:"statuses"`
	Categories []EnumView `json:"categories"`
	Priorities []EnumView `json:"priorities"`
	Roles      []EnumView `json:"roles"`
	Actions    []EnumView `json:"actions"`
}

func NewVocabularyResponse(lang domain.Language) VocabularyResponse {
	resp := VocabularyResponse{Language: string(lang)}
	for _, s := range domain.Statuses {
		resp.Statuses = append(resp.Statuses, StatusView(s, lang))
	}
	for _, c := range domain.Categories {
		resp.Categories = append(resp.Categories, CategoryView(c, lang))
	}
	for _, p := range domain.Priorities {
		resp.Priorities = append(resp.Priorities, PriorityView(p, lang))
	}
	for _, r := range domain.Roles {
		resp.Roles = append(resp.Roles, RoleView(r, lang))
	}
	for _, a := range domain.Actions {
		resp.Actions = append(resp.Actions, ActionView(a, lang))
	}
	return resp
}
