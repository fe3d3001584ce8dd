package config

// Drivers is the immutable registry of supported motor driver modules.
type Drivers struct {
	names []string
}

func DefaultDrivers() Drivers {
	return NewDrivers("motorNewFocus")
}

func NewDrivers(names ...string) Drivers {
	copied := make([]string, len(names))
	copy(copied, names)
	return Drivers{names: copied}
}

func (d Drivers) Supports(driverType string) bool {
	for _, name := range d.names {
		if name == driverType {
			return true
		}
	}
	return false
}

func (d Drivers) Names() []string {
	names := make([]string, len(d.names))
	copy(names, d.names)
	return names
}
