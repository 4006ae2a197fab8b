package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterCountsAndSuppressesCascades(t *testing.T) {
	r := NewReporter(10)
	p := Pos{File: "a.pas", Line: 3, Col: 7}

	r.Errorf(p, "no ;")
	r.Errorf(p, "undeclared identifier")
	r.Errorf(Pos{File: "a.pas", Line: 4, Col: 1}, "type mismatch")
	r.Warnf(p, "set clamped")

	assert.Equal(t, 3, r.ErrorCount())
	assert.Equal(t, 1, r.WarningCount())
	require.Len(t, r.Diagnostics(), 3)
	assert.Equal(t, "a.pas:3:7: error: no ;", r.Diagnostics()[0].String())
	assert.Equal(t, 2, r.Count(Error))
	assert.Equal(t, 1, r.Count(Warning))
}

func TestReporterCeilingEscalatesToFatal(t *testing.T) {
	r := NewReporter(2)
	r.Errorf(Pos{Line: 1, Col: 1}, "one")
	r.Errorf(Pos{Line: 2, Col: 1}, "two")

	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		abort, ok := rec.(*Abort)
		require.True(t, ok)
		assert.Equal(t, Fatal, abort.Severity)
		assert.Contains(t, abort.Error(), "too many errors")
	}()
	r.Errorf(Pos{Line: 3, Col: 1}, "three")
	t.Fatal("expected abort")
}

func TestSummary(t *testing.T) {
	r := NewReporter(0)
	assert.Equal(t, DefaultMaxErrors, r.MaxErrors)
	assert.Empty(t, r.Summary())

	r.Warnf(Pos{}, "unused label")
	assert.Equal(t, "warning: unused label\n0 error(s), 1 warning(s)\n", r.Summary())
}
