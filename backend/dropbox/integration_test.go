//go:build vfsintegration

package dropbox

import (
	"os"
	"testing"

	"github.com/c2fo/vfs/v7/backend/testsuite"
)

// Run with: go test -v -tags=vfsintegration ./backend/dropbox -run Conformance
//
// VFS_DROPBOX_ACCESS_TOKEN must hold a token for a scratch account. VFS_DROPBOX_TEST_PATH picks the
// folder the suites write under (default /vfs-test/).
func conformanceLocation(t *testing.T) *Location {
	t.Helper()

	token := os.Getenv(EnvAccessToken)
	if token == "" {
		t.Skip("VFS_DROPBOX_ACCESS_TOKEN not set, skipping integration tests")
	}

	testPath := os.Getenv("VFS_DROPBOX_TEST_PATH")
	if testPath == "" {
		testPath = "/vfs-test/"
	}

	location, err := NewFileSystem(WithAccessToken(token)).NewLocation("", testPath)
	if err != nil {
		t.Fatalf("failed to create test location: %v", err)
	}
	return location.(*Location)
}

func TestConformance(t *testing.T) {
	// client_modified is the only timestamp a re-upload can set
	testsuite.RunConformanceTests(t, conformanceLocation(t), testsuite.ConformanceOptions{
		SkipTouchTimestampTest: true,
	})
}

func TestIOConformance(t *testing.T) {
	testsuite.RunIOTests(t, conformanceLocation(t))
}
