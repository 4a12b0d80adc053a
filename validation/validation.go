// Package validation holds the per-field rules of the onboarding wizard.
// Every rule is pure: it returns a user-facing message, or "" when the
// value is acceptable.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

type rule func(value string) string

type field struct {
	Name     string
	Section  string
	Label    string
	Optional bool
	Rules    []rule
}

var validate = validator.New()

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

var fields = []field{
	{Name: "businessName", Section: "businessDetails", Label: "Business name", Rules: []rule{minLength("Name", 2)}},
	{Name: "contactName", Section: "businessDetails", Label: "Contact name", Rules: []rule{minLength("Name", 2)}},
	{Name: "email", Section: "businessDetails", Label: "Email", Rules: []rule{email}},
	{Name: "phone", Section: "businessDetails", Label: "Phone number", Rules: []rule{phone}},
	{Name: "industry", Section: "businessDetails", Label: "Industry"},
	{Name: "website", Section: "businessDetails", Label: "Website", Optional: true, Rules: []rule{url}},
	{Name: "linkedin", Section: "businessDetails", Label: "LinkedIn", Optional: true, Rules: []rule{linkedin}},

	{Name: "campaignName", Section: "campaign", Label: "Campaign name", Rules: []rule{minLength("Campaign name", 2)}},
	{Name: "objective", Section: "campaign", Label: "Campaign objective"},
	{Name: "budget", Section: "campaign", Label: "Budget", Rules: []rule{positiveAmount}},
	{Name: "startDate", Section: "campaign", Label: "Start date", Optional: true, Rules: []rule{date}},

	{Name: "targetLocation", Section: "audience", Label: "Target location"},
	{Name: "ageRange", Section: "audience", Label: "Age range"},
	{Name: "interests", Section: "audience", Label: "Interests"},

	{Name: "primaryFont", Section: "typography", Label: "Primary font"},
	{Name: "secondaryFont", Section: "typography", Label: "Secondary font", Optional: true},

	{Name: "logoUrl", Section: "brandAssets", Label: "Logo URL", Rules: []rule{url}},
	{Name: "brandColors", Section: "brandAssets", Label: "Brand colors", Rules: []rule{hexColors}},
	{Name: "guidelinesUrl", Section: "brandAssets", Label: "Brand guidelines URL", Optional: true, Rules: []rule{url}},

	{Name: "crmSystem", Section: "systemIntegration", Label: "CRM system"},
	{Name: "webhookUrl", Section: "systemIntegration", Label: "Webhook URL", Optional: true, Rules: []rule{url}},
	{Name: "notes", Section: "systemIntegration", Label: "Notes", Optional: true, Rules: []rule{maxLength(1000)}},
}

// UnknownField is reported for keys that do not belong to the step they
// were submitted with.
const UnknownField = "This field is not part of this step"

var byName = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}()

// ValidateField checks a single field. Unknown fields are accepted and
// optional fields are only checked when filled in.
func ValidateField(name, value string) string {
	f, ok := byName[name]
	if !ok {
		return ""
	}

	value = strings.TrimSpace(value)
	if value == "" {
		if f.Optional {
			return ""
		}
		return f.Label + " is required"
	}

	for _, r := range f.Rules {
		if msg := r(value); msg != "" {
			return msg
		}
	}
	return ""
}

// ValidateSection checks every field registered for a section and returns
// the failing ones keyed by field name. Keys from other sections fail too.
func ValidateSection(section string, values map[string]string) map[string]string {
	errs := make(map[string]string)
	for name := range values {
		if !KnownField(section, name) {
			errs[name] = UnknownField
		}
	}
	for _, f := range fields {
		if f.Section != section {
			continue
		}
		if msg := ValidateField(f.Name, values[f.Name]); msg != "" {
			errs[f.Name] = msg
		}
	}
	return errs
}

// ValidateFields checks an arbitrary set of fields, as sent on change/blur.
func ValidateFields(values map[string]string) map[string]string {
	errs := make(map[string]string)
	for name, value := range values {
		if msg := ValidateField(name, value); msg != "" {
			errs[name] = msg
		}
	}
	return errs
}

func RequiredFields(section string) []string {
	var out []string
	for _, f := range fields {
		if f.Section == section && !f.Optional {
			out = append(out, f.Name)
		}
	}
	return out
}

// KnownField reports whether name belongs to section.
func KnownField(section, name string) bool {
	f, ok := byName[name]
	return ok && f.Section == section
}

func minLength(subject string, n int) rule {
	return func(v string) string {
		if utf8.RuneCountInString(v) < n {
			return fmt.Sprintf("%s must be at least %d characters", subject, n)
		}
		return ""
	}
}

func maxLength(n int) rule {
	return func(v string) string {
		if utf8.RuneCountInString(v) > n {
			return fmt.Sprintf("Must be at most %d characters", n)
		}
		return ""
	}
}

func email(v string) string {
	if validate.Var(v, "email") != nil {
		return "Please enter a valid email address"
	}
	return ""
}

func url(v string) string {
	if validate.Var(v, "url") != nil {
		return "Please enter a valid URL"
	}
	return ""
}

func linkedin(v string) string {
	if url(v) != "" || !strings.Contains(strings.ToLower(v), "linkedin.com/") {
		return "Please enter a valid LinkedIn URL"
	}
	return ""
}

// phone accepts an optional leading + followed by 10 to 15 digits; spaces,
// dashes, dots and parentheses are ignored.
func phone(v string) string {
	digits := strings.TrimPrefix(phoneSeparators.Replace(v), "+")
	if !digitsOnly.MatchString(digits) || len(digits) < 10 || len(digits) > 15 {
		return "Please enter a valid phone number"
	}
	return ""
}

func positiveAmount(v string) string {
	cleaned := strings.NewReplacer(",", "", "$", "", "£", "", "€", "").Replace(v)
	amount, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil || amount <= 0 {
		return "Budget must be a positive number"
	}
	return ""
}

func date(v string) string {
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return "Please enter a valid date (YYYY-MM-DD)"
	}
	return ""
}

func hexColors(v string) string {
	for _, c := range strings.Split(v, ",") {
		if validate.Var(strings.TrimSpace(c), "required,hexcolor") != nil {
			return "Please enter valid hex colors, e.g. #1a2b3c"
		}
	}
	return ""
}
