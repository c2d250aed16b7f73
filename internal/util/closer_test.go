package util_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fhirstack/fhir-schema-deploy/internal/util"
)

func failingOp() (retErr error) {
	cleanedUp := false
	defer func() {
		// by the time the calling test observes the return, cleanup ran
		if !cleanedUp {
			retErr = errors.New("cleanup did not run")
		}
	}()
	defer util.DoOnErrOrPanic(&retErr, func() {
		cleanedUp = true
	})
	return errors.New("op failed")
}

func succeedingOp() (cleanedUp bool) {
	var retErr error
	defer util.DoOnErrOrPanic(&retErr, func() {
		cleanedUp = true
	})
	return
}

func TestDoOnErrOrPanic_RunsOnError(t *testing.T) {
	err := failingOp()
	assert.EqualError(t, err, "op failed")
}

func TestDoOnErrOrPanic_SkippedOnSuccess(t *testing.T) {
	assert.False(t, succeedingOp())
}

func TestDoOnErrOrPanic_RunsOnPanicAndRethrows(t *testing.T) {
	var retErr error
	cleanedUp := false

	assert.PanicsWithValue(t, "boom", func() {
		defer util.DoOnErrOrPanic(&retErr, func() {
			cleanedUp = true
		})
		panic("boom")
	})
	assert.True(t, cleanedUp)
}
