package obs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeLogsRunIDAndError(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	ctx := WithRunID(context.Background(), "r-1")
	func() {
		err := errors.New("boom")
		defer Time(ctx, "solve")(&err)
	}()
	assert.Contains(t, buf.String(), "run_id=r-1 op=solve")
	assert.Contains(t, buf.String(), "err=boom")

	buf.Reset()
	func() {
		var err error
		defer Time(context.Background(), "quick")(&err)
	}()
	assert.Contains(t, buf.String(), "op=quick")
	assert.NotContains(t, buf.String(), "err=")
}
