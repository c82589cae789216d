package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldNotifyEveryThirdFailure(t *testing.T) {
	cases := map[int]bool{
		0:  false,
		1:  false,
		2:  false,
		3:  true,
		4:  false,
		5:  false,
		6:  true,
		9:  true,
		10: false,
	}
	for failures, want := range cases {
		assert.Equal(t, want, ShouldNotify(failures), "failures=%d", failures)
	}
}
