package names

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPod(t *testing.T) {
	valid := []string{"alice", "my-pod", "a1", "pod-123", strings.Repeat("a", 63)}
	for _, name := range valid {
		assert.True(t, ValidPod(name), name)
	}

	invalid := []string{"", "a", "-alice", "alice-", "Alice", "my.pod", "my_pod",
		strings.Repeat("a", 64)}
	for _, name := range invalid {
		assert.False(t, ValidPod(name), name)
	}
}

func TestValidSegment(t *testing.T) {
	assert.True(t, ValidSegment("blog"))
	assert.True(t, ValidSegment("My_Stream-1"))
	assert.True(t, ValidSegment(".config"))
	assert.True(t, ValidSegment(".meta"))

	assert.False(t, ValidSegment(""))
	assert.False(t, ValidSegment(".secret"))
	assert.False(t, ValidSegment("a.b"))
	assert.False(t, ValidSegment("a b"))
}

func TestValidRecord(t *testing.T) {
	assert.True(t, ValidRecord("post-1"))
	assert.True(t, ValidRecord("image.png"))
	assert.True(t, ValidRecord("a.b.c"))

	assert.False(t, ValidRecord(""))
	assert.False(t, ValidRecord(".hidden"))
	assert.False(t, ValidRecord("trailing."))
	assert.False(t, ValidRecord("has/slash"))
}

func TestValidStreamPath(t *testing.T) {
	assert.True(t, ValidStreamPath("blog"))
	assert.True(t, ValidStreamPath("blog/posts/drafts"))
	assert.True(t, ValidStreamPath(".config/owner"))

	assert.False(t, ValidStreamPath(""))
	assert.False(t, ValidStreamPath("blog//posts"))
	assert.False(t, ValidStreamPath("blog/.hidden"))
}

func TestSystemAndMetaPaths(t *testing.T) {
	assert.True(t, IsSystemPath(".config"))
	assert.True(t, IsSystemPath(".config/owner"))
	assert.False(t, IsSystemPath("blog/.config"))
	assert.False(t, IsSystemPath("blog"))

	assert.True(t, IsMetaPath(".meta/api/streams"))
	assert.False(t, IsMetaPath("blog"))
}
