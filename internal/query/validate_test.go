package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCompiledSelectors(t *testing.T) {
	for _, src := range []string{
		"button",
		"input#email.wide[type=text]:nth(0)",
		"ul.items > li:nth(1) > span",
		"[disabled]",
	} {
		sel, err := Compile(src)
		require.NoError(t, err)

		result := Validate(sel)
		assert.True(t, result.Satisfiable, "selector %q", src)
		assert.Empty(t, result.Warnings)
	}
}

func TestValidateConflictingTags(t *testing.T) {
	sel := Step{Preds: []Pred{Tag{Name: "div"}, Tag{Name: "span"}}}

	result := Validate(sel)
	assert.False(t, result.Satisfiable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "tag tests")
}

func TestValidateConflictingRefs(t *testing.T) {
	sel := Step{Preds: []Pred{Ref{Name: "a"}, Ref{Name: "b"}}}

	result := Validate(sel)
	assert.False(t, result.Satisfiable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "ref tests")
}

func TestValidateConflictingAttrValues(t *testing.T) {
	sel := Step{Preds: []Pred{
		Attr{Name: "type", Value: "text", HasValue: true},
		Attr{Name: "type", Value: "number", HasValue: true},
	}}

	result := Validate(sel)
	assert.False(t, result.Satisfiable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], `attribute "type"`)
}

func TestValidateRepeatedAttrValueIsFine(t *testing.T) {
	sel := Step{Preds: []Pred{
		Attr{Name: "type", Value: "text", HasValue: true},
		Attr{Name: "type", Value: "text", HasValue: true},
		Attr{Name: "type"}, // presence test adds nothing
	}}

	result := Validate(sel)
	assert.True(t, result.Satisfiable)
}

func TestValidateNegativeNth(t *testing.T) {
	sel := Step{Preds: []Pred{Nth{Index: -1}}}

	result := Validate(sel)
	assert.False(t, result.Satisfiable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "negative")
}

func TestValidateSecondNth(t *testing.T) {
	// After a positional pick the group is a singleton, so a later pick
	// past index 0 is a contradiction while index 0 is redundant but fine.
	bad := Step{Preds: []Pred{Nth{Index: 0}, Nth{Index: 2}}}
	result := Validate(bad)
	assert.False(t, result.Satisfiable)

	ok := Step{Preds: []Pred{Nth{Index: 1}, Nth{Index: 0}}}
	result = Validate(ok)
	assert.True(t, result.Satisfiable)
}

func TestValidateEmptyShapes(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.Satisfiable)

	result = Validate(Step{})
	assert.False(t, result.Satisfiable)

	result = Validate(Chain{})
	assert.False(t, result.Satisfiable)
}

func TestValidateChainReportsStepIndex(t *testing.T) {
	sel := Chain{Steps: []Step{
		{Preds: []Pred{Tag{Name: "ul"}}},
		{Preds: []Pred{Tag{Name: "li"}, Tag{Name: "p"}}},
	}}

	result := Validate(sel)
	assert.False(t, result.Satisfiable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "step 1")
}

func TestValidatePointerPreds(t *testing.T) {
	sel := &Step{Preds: []Pred{&Tag{Name: "div"}, &Tag{Name: "span"}}}

	result := Validate(sel)
	assert.False(t, result.Satisfiable)
}
