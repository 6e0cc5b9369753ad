package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// CLIENT MANAGEMENT
// =============================================================================

// CreateClient onboards a new debtor with an empty account.
func (l *Ledger) CreateClient(ctx context.Context, name, phone string) (Client, error) {
	name, phone, err := l.normalizeClient(name, phone)
	if err != nil {
		return Client{}, err
	}

	var created Client
	err = l.mutate(ctx, func(s *State) error {
		if err := checkUnique(s, "", name, phone); err != nil {
			return err
		}
		created = Client{
			ID:        ClientID(l.newID()),
			Name:      name,
			Phone:     phone,
			CreatedAt: l.now(),
		}
		s.Clients = append(s.Clients, created)
		return nil
	})
	if err != nil {
		return Client{}, err
	}

	l.log.Info("client created", zap.String("client_id", string(created.ID)))
	return created.clone(), nil
}

// UpdateClient changes a client's name and phone. The client's own current
// values never count as duplicates.
func (l *Ledger) UpdateClient(ctx context.Context, id ClientID, name, phone string) (Client, error) {
	name, phone, err := l.normalizeClient(name, phone)
	if err != nil {
		return Client{}, err
	}

	var updated Client
	err = l.mutate(ctx, func(s *State) error {
		i := s.clientIndex(id)
		if i < 0 {
			return ErrClientNotFound
		}
		if err := checkUnique(s, id, name, phone); err != nil {
			return err
		}
		s.Clients[i].Name = name
		s.Clients[i].Phone = phone
		updated = s.Clients[i].clone()
		return nil
	})
	if err != nil {
		return Client{}, err
	}

	l.log.Info("client updated", zap.String("client_id", string(id)))
	return updated, nil
}

// DeleteClient removes the client with all active and archived history.
// Float aggregation stops visiting it; the invoice counter is untouched.
func (l *Ledger) DeleteClient(ctx context.Context, id ClientID) error {
	err := l.mutate(ctx, func(s *State) error {
		i := s.clientIndex(id)
		if i < 0 {
			return ErrClientNotFound
		}
		s.Clients = append(s.Clients[:i], s.Clients[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	l.log.Warn("client deleted", zap.String("client_id", string(id)))
	return nil
}

// Client returns a copy of the client.
func (l *Ledger) Client(id ClientID) (Client, error) {
	var (
		c  Client
		ok bool
	)
	l.read(func(s *State) {
		if i := s.clientIndex(id); i >= 0 {
			c, ok = s.Clients[i].clone(), true
		}
	})
	if !ok {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

// Clients returns copies of all clients in creation order.
func (l *Ledger) Clients() []Client {
	var out []Client
	l.read(func(s *State) {
		out = make([]Client, len(s.Clients))
		for i, c := range s.Clients {
			out[i] = c.clone()
		}
	})
	return out
}

// SearchClients matches a case-insensitive name substring or a phone
// substring. An empty query returns every client.
func (l *Ledger) SearchClients(query string) []Client {
	q := strings.ToLower(strings.TrimSpace(query))
	all := l.Clients()
	if q == "" {
		return all
	}
	var out []Client
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(c.Phone, q) {
			out = append(out, c)
		}
	}
	return out
}

// Debt returns the outstanding debt of a client.
func (l *Ledger) Debt(id ClientID) (decimal.Decimal, error) {
	c, err := l.Client(id)
	if err != nil {
		return decimal.Zero, err
	}
	return ClientDebt(c), nil
}

func (l *Ledger) normalizeClient(name, phone string) (string, string, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return "", "", err
	}
	p, err := NormalizePhone(phone, l.countryCode)
	if err != nil {
		return "", "", err
	}
	return n, p, nil
}
