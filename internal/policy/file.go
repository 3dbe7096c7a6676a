package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sumire/hiring/internal/domain"
)

// Document is the on-disk policy format.
//
//	default:
//	  require_job_approval: true
//	  approval_roles: [hiring_manager, hr, admin]
//	companies:
//	  6f1c...:
//	    require_job_approval: false
//	roles:
//	  recruiter: [job.create, job.submit]
type Document struct {
	Default   domain.CompanyPolicy            `yaml:"default"`
	Companies map[string]domain.CompanyPolicy `yaml:"companies"`
	Roles     map[domain.Role][]domain.Action `yaml:"roles"`
}

// File serves company policies loaded from a YAML document.
type File struct {
	def       domain.CompanyPolicy
	companies map[uuid.UUID]domain.CompanyPolicy
	roles     RoleTable
}

// DefaultCompanyPolicy requires approval by hiring managers, HR or admins.
func DefaultCompanyPolicy() domain.CompanyPolicy {
	return domain.CompanyPolicy{
		RequireJobApproval: true,
		ApprovalRoles:      []domain.Role{domain.RoleHiringManager, domain.RoleHR, domain.RoleAdmin},
	}
}

// NewStatic returns a provider that serves def for every company.
func NewStatic(def domain.CompanyPolicy) *File {
	return &File{def: def, companies: map[uuid.UUID]domain.CompanyPolicy{}, roles: DefaultRoleTable()}
}

// LoadFile reads a policy document. An empty path yields the defaults.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return NewStatic(DefaultCompanyPolicy()), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML policy document.
func Parse(raw []byte) (*File, error) {
	doc := Document{Default: DefaultCompanyPolicy()}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if err := validateRoles(doc.Default.ApprovalRoles); err != nil {
		return nil, fmt.Errorf("default policy: %w", err)
	}

	f := NewStatic(doc.Default)
	for key, p := range doc.Companies {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("company %q: %w", key, err)
		}
		if p.ApprovalRoles == nil {
			p.ApprovalRoles = doc.Default.ApprovalRoles
		}
		if err := validateRoles(p.ApprovalRoles); err != nil {
			return nil, fmt.Errorf("company %s: %w", id, err)
		}
		f.companies[id] = p
	}
	for role, actions := range doc.Roles {
		if !role.Valid() {
			return nil, fmt.Errorf("roles: unknown role %q", role)
		}
		f.roles[role] = set(actions)
	}
	return f, nil
}

// PolicyFor returns the policy of companyID, falling back to the default.
func (f *File) PolicyFor(_ context.Context, companyID uuid.UUID) (domain.CompanyPolicy, error) {
	if p, ok := f.companies[companyID]; ok {
		return p, nil
	}
	return f.def, nil
}

// Roles returns the role table, including any overrides from the document.
func (f *File) Roles() RoleTable {
	return f.roles
}

func validateRoles(roles []domain.Role) error {
	for _, r := range roles {
		if !r.Valid() {
			return fmt.Errorf("unknown approval role %q", r)
		}
	}
	return nil
}
