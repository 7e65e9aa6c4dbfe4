package linear_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/adapters/linear"
)

func TestRenderer_Lifecycle(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	r := linear.NewRenderer(&buf)

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.OnTaskStart("root", "", "generate-assets", start)
	r.OnTaskStart("s1", "root", "styles", start)
	r.OnTaskStart("s2", "root", "scripts", start)
	r.OnTaskComplete("s2", start.Add(42*time.Millisecond), nil)
	r.OnTaskComplete("s1", start.Add(1234*time.Millisecond), errors.New("one or more items failed"))
	r.OnTaskComplete("root", start.Add(1300*time.Millisecond), errors.New("one or more items failed"))

	g := goldie.New(t)
	g.Assert(t, "lifecycle", buf.Bytes())
}

func TestRenderer_UnknownSpan(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	r := linear.NewRenderer(&buf)

	r.OnTaskComplete("missing", time.Now(), nil)
	assert.Empty(t, buf.String())
}

func TestRenderer_SubMillisecond(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	r := linear.NewRenderer(&buf)

	start := time.Unix(0, 0)
	r.OnTaskStart("s", "", "images", start)
	r.OnTaskComplete("s", start.Add(1500*time.Nanosecond), nil)

	assert.Contains(t, buf.String(), "[images] ✓ Completed in 2")
}
