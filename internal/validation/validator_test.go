package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/marathon/internal/domain"
)

type sample struct {
	Day      string   `json:"day" validate:"required"`
	Distance *float64 `json:"distance,omitempty" validate:"omitempty,gte=0"`
	Driver   string   `koanf:"driver" validate:"omitempty,oneof=mongo postgres memory"`
}

func TestStructUsesJSONFieldNames(t *testing.T) {
	err := Struct(sample{}, "dailyData[2]")

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "dailyData[2].day", verr.Field)
	require.Equal(t, "is required", verr.Message)
}

func TestStructReportsParamMessages(t *testing.T) {
	negative := -1.0
	err := Struct(sample{Day: "1", Distance: &negative}, "")

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "distance", verr.Field)
	require.Equal(t, "must be greater than or equal to 0", verr.Message)

	err = Struct(sample{Day: "1", Driver: "sqlite"}, "")
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "driver", verr.Field)
	require.Contains(t, verr.Message, "mongo postgres memory")
}

func TestStructPasses(t *testing.T) {
	zero := 0.0
	require.NoError(t, Struct(sample{Day: "7", Distance: &zero}, ""))
	require.Same(t, Get(), Get())
}
