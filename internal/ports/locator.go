package ports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

// PortLocator picks the serial endpoint the microcontroller is attached to
type PortLocator struct {
	enumerator Enumerator
}

// NewPortLocator creates a locator backed by the given enumerator
func NewPortLocator(enumerator Enumerator) *PortLocator {
	return &PortLocator{enumerator: enumerator}
}

// Locate returns override as-is when set. Otherwise it keeps the ports whose
// description contains keyword (case-sensitive) and picks the greatest name,
// which is the most recently registered device on the usual OS naming schemes.
// No match is fatal: hardware presence is a precondition, so nothing retries.
func (l *PortLocator) Locate(override, keyword string) (domain.PortDescriptor, error) {
	if override != "" {
		log.Debug().Str("port", override).Msg("using configured port")
		return domain.PortDescriptor{Name: override}, nil
	}

	ports, err := l.enumerator.ListPorts()
	if err != nil {
		return domain.PortDescriptor{}, fmt.Errorf("%w: enumerate ports: %v", domain.ErrNoDeviceFound, err)
	}

	var candidates []domain.PortDescriptor
	for _, p := range ports {
		if strings.Contains(p.Description, keyword) {
			candidates = append(candidates, p)
		}
	}

	if len(candidates) == 0 {
		return domain.PortDescriptor{}, fmt.Errorf("%w: no port description contains %q; set an explicit port",
			domain.ErrNoDeviceFound, keyword)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name < candidates[j].Name
	})
	chosen := candidates[len(candidates)-1]

	log.Info().
		Str("port", chosen.Name).
		Str("description", chosen.Description).
		Int("candidates", len(candidates)).
		Msg("located serial port")

	return chosen, nil
}
