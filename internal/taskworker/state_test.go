package taskworker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadinessGateCommutes(t *testing.T) {
	resourceFirst := needsBoth.withResource().withSpec()
	specFirst := needsBoth.withSpec().withResource()
	assert.Equal(t, ready, resourceFirst, "expected withResource then withSpec to reach ready")
	assert.Equal(t, ready, specFirst, "expected withSpec then withResource to reach ready")
}

func TestAfterSubtaskDoneKeepsResourceClearsSpec(t *testing.T) {
	got := ready.afterSubtaskDone()
	assert.Equal(t, hasResource, got, "expected hasResource after a render")
	assert.True(t, got.hasResourceReady(), "expected resource to still be marked ready")
}

func TestRedundantResourceSignalIsANoOp(t *testing.T) {
	s := hasResource.withResource()
	assert.Equal(t, hasResource, s, "expected repeated withResource to be a no-op")
}
