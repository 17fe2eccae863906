package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys_Builders(t *testing.T) {
	r := "meters"
	assert.Equal(t, "bulkscan:{meters}:progress", Progress(r))
	assert.Equal(t, "bulkscan:{meters}:meta", Meta(r))
}

func TestKeys_For(t *testing.T) {
	r := For("c3")
	assert.Equal(t, "bulkscan:{c3}:progress", r.Progress)
	assert.Equal(t, "bulkscan:{c3}:meta", r.Meta)
	assert.Equal(t, Progress("c3"), r.Progress)
}

func TestKeys_ExtractRun(t *testing.T) {
	assert.Equal(t, "meters", ExtractRun("bulkscan:{meters}:progress"))
	assert.Equal(t, "", ExtractRun("bulkscan:meters:progress"))
	assert.Equal(t, "", ExtractRun("bulkscan:{}:meta"))
	assert.Equal(t, "", ExtractRun("bulkscan:meters}:meta"))
	assert.Equal(t, "", ExtractRun(""))
}
