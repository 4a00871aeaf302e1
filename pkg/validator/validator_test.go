package validator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string  `json:"name" validate:"required,max=10"`
	Weight float64 `json:"weight" validate:"finite,gte=0"`
	Items  []item  `json:"items" validate:"dive"`
}

type item struct {
	ID string `json:"id" validate:"required"`
}

func TestValidate(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(sample{Name: "ok", Weight: 2}))

	err := v.Validate(sample{Weight: math.Inf(1), Items: []item{{}}})
	require.Error(t, err)
	fields := Describe(err)
	assert.Equal(t, "failed required", fields["name"])
	assert.Equal(t, "failed finite", fields["weight"])
	assert.Equal(t, "failed required", fields["items[0].id"])

	err = v.Validate(sample{Name: "much too long", Weight: -1})
	fields = Describe(err)
	assert.Equal(t, "failed max=10", fields["name"])
	assert.Equal(t, "failed gte=0", fields["weight"])
}

func TestDescribe_OtherErrors(t *testing.T) {
	assert.Nil(t, Describe(assert.AnError))
}
