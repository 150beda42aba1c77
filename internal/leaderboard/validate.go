package leaderboard

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names so messages match what the caller sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enums := map[string]func(string) bool{
		"category":    func(s string) bool { return models.Category(s).Valid() },
		"stage":       func(s string) bool { return models.Stage(s).Valid() },
		"price_range": func(s string) bool { return models.PriceRange(s).Valid() },
	}
	for tag, ok := range enums {
		ok := ok
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return ok(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
	return v
}

// check runs the struct tags of req and folds every failure into one
// ValidationError.
func check(req any) *ValidationError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Message: err.Error()}
	}

	out := &ValidationError{}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fe.Field())
		msgs = append(msgs, describe(fe))
	}
	out.Message = strings.Join(msgs, "; ")
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", fe.Field(), fe.Param())
	case "category", "stage", "price_range":
		return fmt.Sprintf("invalid %s %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, field)
	if e.Message == "" {
		e.Message = msg
	} else {
		e.Message += "; " + msg
	}
}

// ValidateProblem trims the request and returns it ready to store. A jtbd
// submission with a complete triple may omit the description; one is then
// composed from the triple.
func ValidateProblem(req models.CreateProblemRequest) (models.CreateProblemRequest, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	req.SubmissionMethod = string(models.ParseSubmissionMethod(req.SubmissionMethod))

	if req.SubmissionMethod == string(models.MethodJTBD) && req.JTBD != nil {
		req.JTBD = &models.JTBD{
			Situation:  strings.TrimSpace(req.JTBD.Situation),
			Motivation: strings.TrimSpace(req.JTBD.Motivation),
			Outcome:    strings.TrimSpace(req.JTBD.Outcome),
		}
	} else if req.SubmissionMethod != string(models.MethodJTBD) {
		req.JTBD = nil
	}

	verr := check(req)
	if verr == nil {
		verr = &ValidationError{}
	}

	if req.Description == "" {
		if req.SubmissionMethod == string(models.MethodJTBD) && req.JTBD.Complete() {
			req.Description = ComposeDescription(req.JTBD)
		} else {
			verr.add("description", "description is required")
		}
	}

	if len(verr.Fields) > 0 {
		return req, verr
	}
	return req, nil
}

// ComposeDescription renders a jobs-to-be-done triple as one sentence.
func ComposeDescription(j *models.JTBD) string {
	return fmt.Sprintf("When %s, I want to %s, so I can %s.", j.Situation, j.Motivation, j.Outcome)
}

func ValidateSolution(req models.CreateSolutionRequest) (models.CreateSolutionRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Link = strings.TrimSpace(req.Link)
	req.Stage = strings.TrimSpace(req.Stage)
	req.HowItAddresses = strings.TrimSpace(req.HowItAddresses)

	if verr := check(req); verr != nil {
		return req, verr
	}
	return req, nil
}

func ValidateAlternative(req models.CreateAlternativeRequest) (models.CreateAlternativeRequest, error) {
	req.AlternativeName = strings.TrimSpace(req.AlternativeName)
	req.WhyItFails = strings.TrimSpace(req.WhyItFails)

	if verr := check(req); verr != nil {
		return req, verr
	}
	return req, nil
}

// ValidatePriceRange accepts an empty tag as "no price range".
func ValidatePriceRange(raw string) (*models.PriceRange, error) {
	req := models.PaySignalRequest{PriceRange: strings.TrimSpace(raw)}
	if verr := check(req); verr != nil {
		return nil, verr
	}
	if req.PriceRange == "" {
		return nil, nil
	}
	pr := models.PriceRange(req.PriceRange)
	return &pr, nil
}
