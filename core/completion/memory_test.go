package completion_test

import (
	"testing"

	"github.com/kilianp07/evslot/core/completion"
	"github.com/kilianp07/evslot/core/completion/completiontest"
)

func TestMemoryIndex(t *testing.T) {
	completiontest.Run(t, func(*testing.T) completion.Index { return completion.NewMemoryIndex() })
}
