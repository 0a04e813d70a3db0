package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogf_VerbosityGating(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	log.Logf(LevelVerbose, "should not appear")
	assert.Empty(t, buf.String())

	log.Logf(LevelInfo, "should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestLogf_LevelNameHiddenAtInfoThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	log.Logf(LevelInfo, "hello")
	assert.NotContains(t, buf.String(), "[INFO]")
}

func TestLogf_LevelNameShownWhenVerboseThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelVerbose)

	log.Logf(LevelVerbose, "hello")
	assert.Contains(t, buf.String(), "[VERBOSE]")
}

func TestWithPrefix_ComposesLeftToRight(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	child := log.WithPrefix("pve1").WithPrefix("upgrade")
	child.Info("step done")

	line := buf.String()
	idxNode := strings.Index(line, "[pve1]")
	idxStep := strings.Index(line, "[upgrade]")
	assert.True(t, idxNode >= 0 && idxStep > idxNode, "expected [pve1] before [upgrade], got: %s", line)
}

func TestWithPrefix_DoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	_ = log.WithPrefix("child")
	log.Info("parent line")

	assert.NotContains(t, buf.String(), "[child]")
}

func TestNoOp_EmitsMarker(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)

	log.NoOp("apt-get dist-upgrade -y")

	assert.Contains(t, buf.String(), "NO-OP")
	assert.Contains(t, buf.String(), "apt-get dist-upgrade -y")
}

func TestSubSecondTimestamp_AtDebug2(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug2)
	log.Info("x")
	assert.Regexp(t, `\d{2}:\d{2}:\d{2}\.\d{3}`, buf.String())
}

func TestSecondTimestamp_BelowDebug2(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo)
	log.Info("x")
	assert.NotRegexp(t, `\d{2}:\d{2}:\d{2}\.\d{3}`, buf.String())
}
