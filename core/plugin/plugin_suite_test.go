package plugin

import (
	"testing"

	"github.com/opendap/olfs/lib/testutil"
)

func TestPlugin(t *testing.T) {
	testutil.RunSuite(t, "Plugin Suite")
}
