/*
methods.go - Payment method registry

PURPOSE:
  Payment rails (Cash, M-Pesa, E-Mola, ...) are identified by a stable
  MethodID. The display name is a separate, mutable attribute. Renaming a
  rail therefore never rewrites historical transactions.

RENAME MODES:
  Whether a rename should reclassify history is a business decision, so it
  is an explicit choice at call time:

  RenameInPlace:  only the display name changes. Every past transaction
                  and adjustment stays on the same key, so history now
                  shows the new name.
  RenameReplace:  the old rail is deactivated and a NEW rail (fresh key,
                  new name, same color) is created. History and float stay
                  with the old rail; new activity goes to the new one.

DEACTIVATION:
  Inactive rails reject new transactions but keep their history and float
  balance visible. They can be reactivated.
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

type RenameMode string

const (
	RenameInPlace RenameMode = "in_place"
	RenameReplace RenameMode = "replace"
)

// AddMethod registers a new active payment method.
func (l *Ledger) AddMethod(ctx context.Context, name, color string) (PaymentMethod, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PaymentMethod{}, fmt.Errorf("%w: name is required", ErrInvalidMethod)
	}

	var created PaymentMethod
	err := l.mutate(ctx, func(s *State) error {
		if err := checkMethodName(s, "", name); err != nil {
			return err
		}
		created = PaymentMethod{ID: l.methodID(s, name), Name: name, Color: color, Active: true}
		s.Methods = append(s.Methods, created)
		return nil
	})
	if err != nil {
		return PaymentMethod{}, err
	}

	l.log.Info("payment method added", zap.String("method", string(created.ID)), zap.String("name", name))
	return created, nil
}

// RenameMethod renames a payment method using the given mode and returns the
// method that carries the new name.
func (l *Ledger) RenameMethod(ctx context.Context, id MethodID, newName string, mode RenameMode) (PaymentMethod, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return PaymentMethod{}, fmt.Errorf("%w: name is required", ErrInvalidMethod)
	}
	if mode != RenameInPlace && mode != RenameReplace {
		return PaymentMethod{}, fmt.Errorf("%w: unknown rename mode %q", ErrInvalidMethod, mode)
	}

	var result PaymentMethod
	err := l.mutate(ctx, func(s *State) error {
		i := methodIndex(s, id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrMethodNotFound, id)
		}
		// The method being renamed never collides with itself.
		if err := checkMethodName(s, id, newName); err != nil {
			return err
		}

		switch mode {
		case RenameInPlace:
			s.Methods[i].Name = newName
			result = s.Methods[i]
		case RenameReplace:
			s.Methods[i].Active = false
			result = PaymentMethod{
				ID:     l.methodID(s, newName),
				Name:   newName,
				Color:  s.Methods[i].Color,
				Active: true,
			}
			s.Methods = append(s.Methods, result)
		}
		return nil
	})
	if err != nil {
		return PaymentMethod{}, err
	}

	l.log.Info("payment method renamed",
		zap.String("method", string(id)),
		zap.String("mode", string(mode)),
		zap.String("result", string(result.ID)),
		zap.String("name", newName))
	return result, nil
}

// SetMethodActive activates or deactivates a payment method.
func (l *Ledger) SetMethodActive(ctx context.Context, id MethodID, active bool) (PaymentMethod, error) {
	var result PaymentMethod
	err := l.mutate(ctx, func(s *State) error {
		i := methodIndex(s, id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrMethodNotFound, id)
		}
		if active && !s.Methods[i].Active {
			if err := checkMethodName(s, id, s.Methods[i].Name); err != nil {
				return err
			}
		}
		s.Methods[i].Active = active
		result = s.Methods[i]
		return nil
	})
	if err != nil {
		return PaymentMethod{}, err
	}

	l.log.Info("payment method status changed",
		zap.String("method", string(id)),
		zap.Bool("active", active))
	return result, nil
}

// SeedMethods registers configured methods whose id is not known yet.
// Existing methods are left untouched so runtime renames survive restarts.
func (l *Ledger) SeedMethods(ctx context.Context, methods []PaymentMethod) error {
	return l.mutate(ctx, func(s *State) error {
		for _, m := range methods {
			if m.ID == "" {
				m.ID = MethodID(slugify(m.Name))
			}
			if m.ID == "" {
				return fmt.Errorf("%w: method without id or name", ErrInvalidMethod)
			}
			if methodIndex(s, m.ID) >= 0 {
				continue
			}
			s.Methods = append(s.Methods, m)
		}
		return nil
	})
}

// Methods returns every registered payment method in order.
func (l *Ledger) Methods() []PaymentMethod {
	var out []PaymentMethod
	l.read(func(s *State) { out = append([]PaymentMethod(nil), s.Methods...) })
	return out
}

// ActiveMethods returns the methods new transactions may use.
func (l *Ledger) ActiveMethods() []PaymentMethod {
	var out []PaymentMethod
	for _, m := range l.Methods() {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}

// ResolveMethod finds a method by id, then by case-insensitive name
// (active methods win over inactive ones with the same name).
func (l *Ledger) ResolveMethod(ref string) (PaymentMethod, error) {
	ref = strings.TrimSpace(ref)
	methods := l.Methods()
	for _, m := range methods {
		if string(m.ID) == ref {
			return m, nil
		}
	}
	var fallback *PaymentMethod
	for i, m := range methods {
		if strings.EqualFold(m.Name, ref) {
			if m.Active {
				return m, nil
			}
			if fallback == nil {
				fallback = &methods[i]
			}
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return PaymentMethod{}, fmt.Errorf("%w: %q", ErrMethodNotFound, ref)
}

// =============================================================================
// HELPERS
// =============================================================================

func methodIndex(s *State, id MethodID) int {
	for i := range s.Methods {
		if s.Methods[i].ID == id {
			return i
		}
	}
	return -1
}

// checkMethodName enforces case-insensitive uniqueness among active methods.
func checkMethodName(s *State, self MethodID, name string) error {
	for _, m := range s.Methods {
		if m.ID != self && m.Active && strings.EqualFold(m.Name, name) {
			return fmt.Errorf("%w: %q already used by %s", ErrDuplicateMethod, name, m.ID)
		}
	}
	return nil
}

// methodID derives a readable key from the name, falling back to a
// generated id when the slug is empty or taken.
func (l *Ledger) methodID(s *State, name string) MethodID {
	if slug := MethodID(slugify(name)); slug != "" && methodIndex(s, slug) < 0 {
		return slug
	}
	return MethodID(l.newID())
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
