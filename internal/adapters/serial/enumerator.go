package serial

import (
	"fmt"

	"go.bug.st/serial/enumerator"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

// Enumerator lists attached serial ports
type Enumerator struct{}

// ListPorts returns every port with its product string as description
func (Enumerator) ListPorts() ([]domain.PortDescriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	ports := make([]domain.PortDescriptor, 0, len(details))
	for _, d := range details {
		ports = append(ports, describe(d))
	}
	return ports, nil
}

func describe(d *enumerator.PortDetails) domain.PortDescriptor {
	desc := d.Product
	if d.IsUSB && desc == "" {
		desc = fmt.Sprintf("USB %s:%s", d.VID, d.PID)
	}
	return domain.PortDescriptor{Name: d.Name, Description: desc}
}
