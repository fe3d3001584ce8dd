package hooks

import (
	"sync"

	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
)

// Hook runs around the generation of a single IOC instance.
type Hook interface {
	BeforeGenerate(request config.InstanceRequest) error
	AfterGenerate(request config.InstanceRequest, instanceDir string) error
}

type DefaultHook struct{}

func (DefaultHook) BeforeGenerate(config.InstanceRequest) error        { return nil }
func (DefaultHook) AfterGenerate(config.InstanceRequest, string) error { return nil }

var (
	mu         sync.Mutex
	registered []Hook
)

func Add(hook Hook) {
	mu.Lock()
	defer mu.Unlock()
	registered = append(registered, hook)
}

func Registered() []Hook {
	mu.Lock()
	defer mu.Unlock()
	return append([]Hook(nil), registered...)
}

func ClearHooks() {
	mu.Lock()
	defer mu.Unlock()
	registered = nil
}

func RunBefore(hooks []Hook, request config.InstanceRequest) error {
	for _, hook := range hooks {
		if err := hook.BeforeGenerate(request); err != nil {
			return err
		}
	}
	return nil
}

func RunAfter(hooks []Hook, request config.InstanceRequest, instanceDir string) error {
	for _, hook := range hooks {
		if err := hook.AfterGenerate(request, instanceDir); err != nil {
			return err
		}
	}
	return nil
}
