package integration_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudfoundry/libbuildpack"
	"github.com/cloudfoundry/libbuildpack/ansicleaner"
	"github.com/cloudfoundry/switchblade"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/external"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/generate"
	"github.com/paketo-buildpacks/packit/v2/pexec"
	"github.com/sclevine/spec"

	. "github.com/onsi/gomega"
)

const configureTemplate = `---
ioc_dir: %s
top_binary_dir: %s
hostname: xf10idc-ioc1
engineer: J. Doe
ca_address: 10.10.0.255
template_url: %s
platform: linux
iocs:
  - type: motorNewFocus
    name: %s
    prefix: XF:10IDC-CT
    port: "4050"
    connection: 10.0.0.5
    number: 37
  - type: motorSmarAct
    name: smaract01
    prefix: XF:10IDC-CT
    port: "4051"
    connection: NA
    number: 1
  - type: motorNewFocus
    name: %s
    prefix: XF:10IDC-CT
    port: "4052"
    connection: 10.0.0.6
    number: 38
`

func testConfigure(templateURL, fixtures string) func(*testing.T, spec.G, spec.S) {
	return func(t *testing.T, context spec.G, it spec.S) {
		var (
			Expect = NewWithT(t).Expect

			workDir string
			buffer  *bytes.Buffer
			logger  *libbuildpack.Logger
			first   string
			second  string
		)

		it.Before(func() {
			var err error
			workDir, err = os.MkdirTemp("", "motorioc.configure.")
			Expect(err).NotTo(HaveOccurred())

			first, err = switchblade.RandomName()
			Expect(err).NotTo(HaveOccurred())
			second, err = switchblade.RandomName()
			Expect(err).NotTo(HaveOccurred())

			buffer = new(bytes.Buffer)
			logger = libbuildpack.NewLogger(ansicleaner.New(buffer))

			contents := fmt.Sprintf(configureTemplate, filepath.Join(workDir, "iocs"), filepath.Join(fixtures, "epics-stacked"), templateURL, first, second)
			Expect(os.WriteFile(filepath.Join(workDir, "CONFIGURE.yml"), []byte(contents), 0644)).To(Succeed())
			Expect(os.Mkdir(filepath.Join(workDir, "iocs"), 0755)).To(Succeed())
		})

		it.After(func() {
			if t.Failed() {
				t.Logf("FAILED TEST - work directory: %s", workDir)
				t.Log(buffer.String())
			}
			if !settings.KeepFailedInstances || !t.Failed() {
				Expect(os.RemoveAll(workDir)).To(Succeed())
			}
		})

		it("generates every supported IOC listed in the file", func() {
			loader := &config.Loader{YAML: libbuildpack.NewYAML(), Log: logger}
			run, err := loader.Load(filepath.Join(workDir, "CONFIGURE.yml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Global.Flat).To(BeFalse())
			Expect(run.Requests).To(HaveLen(3))

			generator := &generate.Generator{
				Log:     logger,
				Global:  run.Global,
				Drivers: run.Drivers,
				Collaborator: &external.Shell{
					Git:     pexec.NewExecutable("git"),
					Command: &libbuildpack.Command{},
					Stdout:  buffer,
					Stderr:  buffer,
				},
			}

			results := generator.GenerateAll(run.Requests)
			Expect(results).To(HaveLen(3))
			Expect(results[0].Outcome).To(Equal(generate.Generated), buffer.String())
			Expect(results[1].Outcome).To(Equal(generate.Failed))
			Expect(results[1].Err).To(MatchError(config.ErrUnsupportedDriver))
			Expect(results[2].Outcome).To(Equal(generate.Generated), buffer.String())

			for i, name := range []string{first, second} {
				contents, err := os.ReadFile(filepath.Join(workDir, "iocs", name, "config"))
				Expect(err).NotTo(HaveOccurred())
				Expect(string(contents)).To(HavePrefix(fmt.Sprintf("NAME=%s\nPORT=%d\n", name, 4050+2*i)))
			}

			Expect(filepath.Join(workDir, "iocs", "smaract01")).NotTo(BeADirectory())
		})
	}
}
