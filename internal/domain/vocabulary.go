package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// Language selects the label set used for display.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
)

// NeutralColorTag is returned for values without a descriptor.
const NeutralColorTag = "gray"

var languageMatcher = language.NewMatcher([]language.Tag{language.English, language.Russian})

// ParseLanguage negotiates a display language from an Accept-Language header.
func ParseLanguage(acceptLanguage string, fallback Language) Language {
	if strings.TrimSpace(acceptLanguage) == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	if idx == 1 {
		return LanguageRussian
	}
	return LanguageEnglish
}

// Descriptor carries the display attributes of one vocabulary value.
type Descriptor struct {
	Labels   map[Language]string
	ColorTag string
	Icon     string
}

func (d Descriptor) label(lang Language, raw string) string {
	if label, ok := d.Labels[lang]; ok {
		return label
	}
	if label, ok := d.Labels[LanguageEnglish]; ok {
		return label
	}
	return raw
}

func labels(en, ru string) map[Language]string {
	return map[Language]string{LanguageEnglish: en, LanguageRussian: ru}
}

var statusDescriptors = map[Status]Descriptor{
	StatusNew:        {Labels: labels("New", "Новая"), ColorTag: "yellow"},
	StatusInProgress: {Labels: labels("In progress", "В работе"), ColorTag: "blue"},
	StatusCompleted:  {Labels: labels("Completed", "Завершена"), ColorTag: "green"},
	StatusClosed:     {Labels: labels("Closed", "Закрыта"), ColorTag: "gray"},
}

var categoryDescriptors = map[Category]Descriptor{
	CategoryElectrical: {Labels: labels("Electrical", "Электрика"), ColorTag: "amber", Icon: "Zap"},
	CategoryPlumbing:   {Labels: labels("Plumbing", "Сантехника"), ColorTag: "sky", Icon: "Droplet"},
	CategoryHVAC:       {Labels: labels("HVAC", "Вентиляция/Кондиционирование"), ColorTag: "cyan", Icon: "Wind"},
	CategoryCarpentry:  {Labels: labels("Carpentry", "Столярные работы"), ColorTag: "orange", Icon: "Hammer"},
	CategoryPainting:   {Labels: labels("Painting", "Покраска"), ColorTag: "pink", Icon: "Paintbrush"},
	CategoryCleaning:   {Labels: labels("Cleaning", "Уборка"), ColorTag: "teal", Icon: "Sparkles"},
	CategoryOther:      {Labels: labels("Other", "Прочее"), ColorTag: "gray", Icon: "Wrench"},
}

var priorityDescriptors = map[Priority]Descriptor{
	PriorityLow:    {Labels: labels("Low", "Низкий"), ColorTag: "gray"},
	PriorityMedium: {Labels: labels("Medium", "Средний"), ColorTag: "yellow"},
	PriorityHigh:   {Labels: labels("High", "Высокий"), ColorTag: "orange"},
	PriorityUrgent: {Labels: labels("Urgent", "Срочно"), ColorTag: "red"},
}

var roleDescriptors = map[Role]Descriptor{
	RoleSuperAdmin: {Labels: labels("Super admin", "Супер админ"), ColorTag: "red"},
	RoleManager:    {Labels: labels("Manager", "Менеджер"), ColorTag: "blue"},
	RoleTechnician: {Labels: labels("Technician", "Техник"), ColorTag: "green"},
	RoleRequester:  {Labels: labels("Requester", "Заявитель"), ColorTag: "purple"},
}

var actionDescriptors = map[Action]Descriptor{
	ActionAccept:   {Labels: labels("Accept", "Принять в работу"), ColorTag: "green", Icon: "UserCheck"},
	ActionStart:    {Labels: labels("Start work", "Начать работу"), ColorTag: "green", Icon: "UserCheck"},
	ActionReject:   {Labels: labels("Reject", "Отказаться"), ColorTag: "red", Icon: "UserX"},
	ActionComplete: {Labels: labels("Complete work", "Завершить работу"), ColorTag: "blue", Icon: "CheckSquare"},
	ActionClose:    {Labels: labels("Close request", "Закрыть заявку"), ColorTag: "gray", Icon: "X"},
}

const defaultActionIcon = "Play"

func (s Status) Label(lang Language) string   { return statusDescriptors[s].label(lang, string(s)) }
func (c Category) Label(lang Language) string { return categoryDescriptors[c].label(lang, string(c)) }
func (p Priority) Label(lang Language) string { return priorityDescriptors[p].label(lang, string(p)) }
func (r Role) Label(lang Language) string     { return roleDescriptors[r].label(lang, string(r)) }
func (a Action) Label(lang Language) string   { return actionDescriptors[a].label(lang, string(a)) }

func (s Status) ColorTag() string   { return colorOf(statusDescriptors[s]) }
func (c Category) ColorTag() string { return colorOf(categoryDescriptors[c]) }
func (p Priority) ColorTag() string { return colorOf(priorityDescriptors[p]) }
func (r Role) ColorTag() string     { return colorOf(roleDescriptors[r]) }
func (a Action) ColorTag() string   { return colorOf(actionDescriptors[a]) }

func (c Category) Icon() string { return categoryDescriptors[c].Icon }

// Icon falls back to a generic play icon for unknown actions.
func (a Action) Icon() string {
	if d, ok := actionDescriptors[a]; ok && d.Icon != "" {
		return d.Icon
	}
	return defaultActionIcon
}

func colorOf(d Descriptor) string {
	if d.ColorTag == "" {
		return NeutralColorTag
	}
	return d.ColorTag
}

// LabelForField renders a history field name for descriptions.
func LabelForField(field RequestField) string {
	switch field {
	case FieldAssignedTechnicianID:
		return "Assigned technician"
	case FieldManagerID:
		return "Manager"
	case FieldEstimatedCompletionDate:
		return "Estimated completion date"
	case FieldActualCompletionDate:
		return "Actual completion date"
	case "":
		return ""
	default:
		s := string(field)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}
