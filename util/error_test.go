package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type m = map[string]any

type logCapture struct {
	lines []string
}

func (lc *logCapture) Write(p []byte) (int, error) {
	lc.lines = append(lc.lines, string(p))
	return len(p), nil
}

func (lc *logCapture) Reset() {
	lc.lines = lc.lines[:0]
}

func captureLogger() (*logrus.Logger, *logCapture) {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	}
	lc := &logCapture{}
	l.Out = lc
	return l, lc
}

func TestContextualError_Log(t *testing.T) {
	l, lc := captureLogger()

	e := NewContextualError("ring attach failed", m{"queue": "0"}, errors.New("boom"))
	e.Log(l)
	assert.Equal(t, []string{"level=error msg=\"ring attach failed\" error=boom queue=0\n"}, lc.lines)

	lc.Reset()
	e = NewContextualError("ring attach failed", nil, errors.New("boom"))
	e.Log(l)
	assert.Equal(t, []string{"level=error msg=\"ring attach failed\" error=boom\n"}, lc.lines)

	lc.Reset()
	e = NewContextualError("ring attach failed", m{"queue": "0"}, nil)
	e.Log(l)
	assert.Equal(t, []string{"level=error msg=\"ring attach failed\" queue=0\n"}, lc.lines)

	lc.Reset()
	e = NewContextualError("ring attach failed", nil, nil)
	e.Log(l)
	assert.Equal(t, []string{"level=error msg=\"ring attach failed\"\n"}, lc.lines)
}

func TestLogWithContextIfNeeded(t *testing.T) {
	l, lc := captureLogger()

	// an error with its own context ignores the fallback message
	e := NewContextualError("real context", m{"queue": "1"}, errors.New("boom"))
	LogWithContextIfNeeded("thrown away", e, l)
	assert.Equal(t, []string{"level=error msg=\"real context\" error=boom queue=1\n"}, lc.lines)

	lc.Reset()
	err := fmt.Errorf("a plain error")
	LogWithContextIfNeeded("fallback context", err, l)
	assert.Equal(t, []string{"level=error msg=\"fallback context\" error=\"a plain error\"\n"}, lc.lines)
}

func TestContextualizeIfNeeded(t *testing.T) {
	e := NewContextualError("real context", m{"queue": "1"}, errors.New("boom"))
	assert.Same(t, e, ContextualizeIfNeeded("ignored", e))

	err := fmt.Errorf("a plain error")
	cErr := ContextualizeIfNeeded("added context", err)

	var ce *ContextualError
	if assert.ErrorAs(t, cErr, &ce) {
		assert.Equal(t, err, ce.RealError)
		assert.Equal(t, "added context", ce.Context)
	}
}
