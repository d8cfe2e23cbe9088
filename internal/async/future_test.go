package async

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFutureSettlesOnce(t *testing.T) {
	f := NewFuture[int]()
	assert.Equal(t, Pending, f.State())

	assert.True(t, f.Resolve(7))
	assert.False(t, f.Resolve(8))
	assert.False(t, f.Reject(errors.New("late")))

	v, err, settled := f.Result()
	assert.True(t, settled)
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, "resolved", f.State().String())
}

func TestFutureThen(t *testing.T) {
	f := NewFuture[string]()
	var got []error
	f.Then(func(_ string, err error) { got = append(got, err) })

	boom := errors.New("boom")
	f.Reject(boom)
	f.Then(func(_ string, err error) { got = append(got, err) })

	assert.Equal(t, []error{boom, boom}, got)
	assert.Equal(t, Rejected, f.State())
}
