package doctors

import (
	"context"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/apiclient"
	"github.com/wolfman30/clinic-portal/internal/view"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// AllSpecialties disables the specialty filter.
const AllSpecialties = "All Specialties"

// PublicLister lists the public doctor directory.
type PublicLister interface {
	ListDoctors(ctx context.Context) ([]apiclient.Doctor, error)
}

// Contact is the patient-facing doctor list.
type Contact struct {
	api    PublicLister
	logger *logging.Logger

	mu      sync.RWMutex
	doctors []apiclient.Doctor
}

func NewContact(api PublicLister, logger *logging.Logger) *Contact {
	if logger == nil {
		logger = logging.Default()
	}
	return &Contact{api: api, logger: logger}
}

// Load fetches the public list; failures leave it unchanged.
func (c *Contact) Load(ctx context.Context, scope *view.Scope) {
	scope.Track(func() {
		docs, err := c.api.ListDoctors(ctx)
		if err != nil {
			c.logger.Warn("public doctor list fetch failed", "error", err)
			return
		}
		scope.Commit(func() {
			c.mu.Lock()
			c.doctors = docs
			c.mu.Unlock()
		})
	})
}

// Find returns the loaded doctor with id.
func (c *Contact) Find(id string) (apiclient.Doctor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.doctors {
		if d.ID.String() == id {
			return d, true
		}
	}
	return apiclient.Doctor{}, false
}

// Search applies ContactSearch to the loaded list.
func (c *Contact) Search(query, specialty string) []apiclient.Doctor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ContactSearch(c.doctors, query, specialty)
}

// Specialties lists the specialties of the loaded list.
func (c *Contact) Specialties() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Specialties(c.doctors)
}

func specialtyOf(d apiclient.Doctor) string {
	if d.Specialization != "" {
		return d.Specialization
	}
	return d.Department
}

// ContactSearch matches query against name or specialty and, unless
// specialty is empty or AllSpecialties, requires that specialty.
func ContactSearch(doctors []apiclient.Doctor, query, specialty string) []apiclient.Doctor {
	query = strings.ToLower(strings.TrimSpace(query))
	wantSpec := strings.ToLower(strings.TrimSpace(specialty))
	if specialty == AllSpecialties {
		wantSpec = ""
	}
	out := make([]apiclient.Doctor, 0, len(doctors))
	for _, d := range doctors {
		spec := strings.ToLower(specialtyOf(d))
		if query != "" && !strings.Contains(strings.ToLower(d.Name), query) && !strings.Contains(spec, query) {
			continue
		}
		if wantSpec != "" && spec != wantSpec {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Specialties returns AllSpecialties followed by each distinct specialty in
// first-seen order.
func Specialties(doctors []apiclient.Doctor) []string {
	out := []string{AllSpecialties}
	seen := map[string]bool{}
	for _, d := range doctors {
		s := specialtyOf(d)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
