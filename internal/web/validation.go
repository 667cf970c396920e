package web

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Tiliavir/reception/internal/model"
)

// ValidationError lists the required check-in fields that were empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Form field names of the check-in form.
const (
	fieldName         = "name"
	fieldIDNumber     = "id_number"
	fieldServiceType  = "service_type"
	fieldNeighborhood = "neighborhood"
)

// NewEntryFromForm trims the check-in fields and checks that none is empty.
// The store does not re-check, so this must run before Append.
func NewEntryFromForm(form url.Values) (model.NewEntry, error) {
	ne := model.NewEntry{
		Name:         strings.TrimSpace(form.Get(fieldName)),
		IDNumber:     strings.TrimSpace(form.Get(fieldIDNumber)),
		ServiceType:  strings.TrimSpace(form.Get(fieldServiceType)),
		Neighborhood: strings.TrimSpace(form.Get(fieldNeighborhood)),
	}
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{fieldName, ne.Name},
		{fieldIDNumber, ne.IDNumber},
		{fieldServiceType, ne.ServiceType},
		{fieldNeighborhood, ne.Neighborhood},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return ne, &ValidationError{Fields: missing}
	}
	return ne, nil
}
