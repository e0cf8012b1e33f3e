package featured

import (
	"testing"

	"serotonyl.ru/featured-bot/internal/features/admin"
)

// Избирать в теме может её автор, даже без административных прав.
func TestAllowedInThread(t *testing.T) {
	cases := []struct {
		name    string
		caps    admin.Capability
		need    admin.Capability
		userID  int64
		ownerID int64
		want    bool
	}{
		{"право есть", admin.CapFeature, admin.CapFeature, 1, 0, true},
		{"автор темы без прав", 0, admin.CapFeature, 7, 7, true},
		{"чужая тема без прав", 0, admin.CapFeature, 7, 8, false},
		{"тема не известна", 0, admin.CapFeature, 7, 0, false},
		{"не то право", admin.CapFeature, admin.CapUnfeatureAny, 1, 0, false},
		{"автор темы отзывает чужое", 0, admin.CapUnfeatureAny, 7, 7, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := allowedInThread(c.caps, c.need, c.userID, c.ownerID); got != c.want {
				t.Errorf("allowedInThread(%b, %b, %d, %d) = %v, ожидалось %v",
					c.caps, c.need, c.userID, c.ownerID, got, c.want)
			}
		})
	}
}
