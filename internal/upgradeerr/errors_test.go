package upgradeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode_Mapping(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(Configuration(errors.New("bad flag"))))
	assert.Equal(t, 2, ExitCode(Precondition(errors.New("offline nodes"))))
	assert.Equal(t, 3, ExitCode(NodeStep("pve2", "upgrade", errors.New("apt failed"))))
	assert.Equal(t, 1, ExitCode(errors.New("unclassified")))
}

func TestExitCode_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("top level: %w", Precondition(errors.New("offline")))
	assert.Equal(t, 2, ExitCode(wrapped))
}

func TestNodeStepError_Message(t *testing.T) {
	err := NodeStep("pve2", "enter-maintenance", errors.New("timeout"))
	assert.Contains(t, err.Error(), "pve2")
	assert.Contains(t, err.Error(), "enter-maintenance")
	assert.Contains(t, err.Error(), "timeout")
}
