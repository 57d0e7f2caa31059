package opcbridge

import (
	"fmt"

	"github.com/ghalamif/opcbridge/internal/domain"
)

// BuildRegistry registers every data point in declaration order and freezes
// the result. Unknown types and duplicate identifiers are config errors.
func BuildRegistry(points []DataPoint) (*Registry, error) {
	reg := domain.NewRegistry()
	for i, dp := range points {
		kind, err := domain.ParseKind(dp.Type)
		if err != nil {
			return nil, &domain.ConfigError{Field: fmt.Sprintf("data[%d].type", i), Err: err}
		}
		name := dp.Name
		if name == "" {
			name = dp.Identifier
		}
		if err := reg.Register(dp.Identifier, kind, &domain.Slot{Name: name}); err != nil {
			return nil, err
		}
	}
	reg.Freeze()
	return reg, nil
}
