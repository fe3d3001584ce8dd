package hooks

import (
	"fmt"
	"os"

	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
)

type debugHook struct {
	DefaultHook
}

func init() {
	if os.Getenv("BP_DEBUG") != "" {
		Add(debugHook{})
	}
}

func (h debugHook) BeforeGenerate(request config.InstanceRequest) error {
	fmt.Printf("HOOKS: BeforeGenerate %s (%s)\n", request.Name, request.DriverType)
	return nil
}

func (h debugHook) AfterGenerate(request config.InstanceRequest, instanceDir string) error {
	fmt.Printf("HOOKS: AfterGenerate %s in %s\n", request.Name, instanceDir)
	return nil
}
