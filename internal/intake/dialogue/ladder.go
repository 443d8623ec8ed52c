package dialogue

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"leadchat_backend/internal/intake/domain"
)

//go:embed questions.yaml
var questionsYAML []byte

type questionFile struct {
	Greeting string                       `yaml:"greeting"`
	Default  map[string]string            `yaml:"default"`
	Services map[string]map[string]string `yaml:"services"`
}

type questionTable struct {
	Greeting string
	Default  map[domain.Field]string
	Services map[domain.Service]map[domain.Field]string
}

// loadQuestions parses the embedded table once.
var loadQuestions = sync.OnceValue(func() questionTable {
	table, err := parseQuestions(questionsYAML)
	if err != nil {
		panic(err)
	}
	return table
})

// parseQuestions requires default wording for every askable field and
// rejects unknown field or service names.
func parseQuestions(raw []byte) (questionTable, error) {
	var file questionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return questionTable{}, fmt.Errorf("parse question table: %w", err)
	}

	table := questionTable{
		Greeting: file.Greeting,
		Services: make(map[domain.Service]map[domain.Field]string, len(file.Services)),
	}
	var err error
	if table.Default, err = fieldTexts(file.Default); err != nil {
		return questionTable{}, err
	}
	for _, f := range domain.AllFields() {
		if table.Default[f] == "" {
			return questionTable{}, fmt.Errorf("question table has no default text for %s", f)
		}
	}
	for name, texts := range file.Services {
		svc := domain.Service(name)
		if !svc.Valid() {
			return questionTable{}, fmt.Errorf("question table names unknown service %q", name)
		}
		if table.Services[svc], err = fieldTexts(texts); err != nil {
			return questionTable{}, fmt.Errorf("service %s: %w", name, err)
		}
	}
	return table, nil
}

func fieldTexts(raw map[string]string) (map[domain.Field]string, error) {
	out := make(map[domain.Field]string, len(raw))
	for name, text := range raw {
		f, err := domain.ParseField(name)
		if err != nil {
			return nil, err
		}
		out[f] = text
	}
	return out, nil
}

// Question is the next thing to ask the user.
type Question struct {
	Field domain.Field `json:"field"`
	Text  string       `json:"text"`
}

// Greeting is the opening line of a conversation.
func Greeting() string {
	return loadQuestions().Greeting
}

// Text returns the wording for f, using the service-specific variant when
// one exists.
func Text(f domain.Field, svc domain.Service) string {
	table := loadQuestions()
	if text := table.Services[svc][f]; text != "" {
		return text
	}
	return table.Default[f]
}

// NextQuestion walks the priority ladder and returns the first unsatisfied
// field. It returns false once nothing is left to ask.
func NextQuestion(s domain.ConversationState) (Question, bool) {
	for _, f := range ladder(s) {
		if !satisfied(s, f) {
			return Question{Field: f, Text: Text(f, s.ServiceOrEmpty())}, true
		}
	}
	return Question{}, false
}

// ladder lists the fields to ask for the state's service, in order. Pricing
// inputs come before contact details.
func ladder(s domain.ConversationState) []domain.Field {
	fields := []domain.Field{domain.FieldService, domain.FieldDimensions, domain.FieldMaterialTier}
	svc := s.ServiceOrEmpty()
	if svc == "" {
		return fields
	}
	if svc.RequiresExcavation() {
		fields = append(fields, domain.FieldExcavatorAccess)
	}
	switch svc {
	case domain.ServiceDecking:
		fields = append(fields, domain.FieldDeckHeight)
	case domain.ServiceMowing:
		fields = append(fields, domain.FieldOvergrowth)
	case domain.ServiceFencing:
		fields = append(fields, domain.FieldGateCount)
	}
	if svc.DisturbsGround() {
		fields = append(fields, domain.FieldDrivewayAccess, domain.FieldSlope)
	}
	if svc.AllowsDemolition() {
		fields = append(fields, domain.FieldDemolition)
	}
	return append(fields,
		domain.FieldFullName,
		domain.FieldPhone,
		domain.FieldEmail,
		domain.FieldBudget,
		domain.FieldPostcode,
	)
}

func satisfied(s domain.ConversationState, f domain.Field) bool {
	switch f {
	case domain.FieldService:
		return s.Service != nil
	case domain.FieldDimensions:
		return s.HasGeometry()
	case domain.FieldMaterialTier:
		return s.MaterialTier != nil
	case domain.FieldExcavatorAccess:
		return s.ExcavatorAccess != nil
	case domain.FieldDeckHeight:
		return s.DeckHeight != nil
	case domain.FieldOvergrowth:
		return s.Overgrown != nil
	case domain.FieldGateCount:
		return s.GateCount != nil
	case domain.FieldDrivewayAccess:
		return s.DrivewayAccess != nil
	case domain.FieldSlope:
		return s.Slope != nil
	case domain.FieldDemolition:
		return s.Demolition != nil
	case domain.FieldFullName:
		return s.FullName != nil
	case domain.FieldPhone:
		return s.Phone != nil
	case domain.FieldEmail:
		return s.Email != nil
	case domain.FieldBudget:
		return s.Budget != nil
	case domain.FieldPostcode:
		return s.Postcode != nil
	}
	return true
}
