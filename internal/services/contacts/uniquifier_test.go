package contacts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestUniquifierApply(t *testing.T) {
	u := NewUniquifier("a1b2c3d4")

	assert.Equal(t, "john.doe+a1b2c3d41@example.com", u.Apply("john.doe@example.com"))
	assert.Equal(t, "john.doe+a1b2c3d42@example.com", u.Apply("john.doe@example.com"))
	assert.Equal(t, `"a@b"+a1b2c3d43@example.com`, u.Apply(`"a@b"@example.com`), "last @ is the separator")

	for _, notEmail := range []string{"", "plain", "@example.com", "john@"} {
		assert.Equal(t, notEmail, u.Apply(notEmail))
	}
}

func TestUniquifierProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		local := rapid.StringMatching(`[a-z0-9._+-]{1,16}`).Draw(t, "local")
		domain := rapid.StringMatching(`[a-z0-9-]{1,12}\.[a-z]{2,4}`).Draw(t, "domain")
		email := local + "@" + domain
		u := NewUniquifier("deadbeef")

		first := u.Apply(email)
		second := u.Apply(email)

		if first == second {
			t.Fatalf("same base email produced identical values %q", first)
		}
		for _, got := range []string{first, second} {
			if !strings.HasPrefix(got, local+"+deadbeef") {
				t.Fatalf("%q does not keep local part %q", got, local)
			}
			if !strings.HasSuffix(got, "@"+domain) {
				t.Fatalf("%q does not keep domain %q", got, domain)
			}
		}
	})
}
