package config_test

import (
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/cloudfoundry/libbuildpack"
	"github.com/cloudfoundry/libbuildpack/ansicleaner"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
	"github.com/golang/mock/gomock"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

//go:generate mockgen -source=config.go --destination=mocks_test.go --package=config_test

var _ = Describe("Config", func() {
	var (
		err      error
		tmpDir   string
		logger   *libbuildpack.Logger
		buffer   *bytes.Buffer
		mockCtrl *gomock.Controller
		mockYAML *MockYAML
	)

	BeforeEach(func() {
		tmpDir, err = ioutil.TempDir("", "motorioc.config.")
		Expect(err).To(BeNil())

		buffer = new(bytes.Buffer)
		logger = libbuildpack.NewLogger(ansicleaner.New(buffer))

		mockCtrl = gomock.NewController(GinkgoT())
		mockYAML = NewMockYAML(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()

		Expect(os.RemoveAll(tmpDir)).To(Succeed())
	})

	Describe("Loader", func() {
		var (
			run  config.Run
			path string
		)

		Context("reading a real CONFIGURE.yml", func() {
			var loader *config.Loader

			BeforeEach(func() {
				Expect(os.MkdirAll(filepath.Join(tmpDir, "binaries", "support"), 0755)).To(Succeed())

				path = filepath.Join(tmpDir, "CONFIGURE.yml")
				Expect(ioutil.WriteFile(path, []byte(`---
ioc_dir: /epics/iocs
top_binary_dir: `+filepath.Join(tmpDir, "binaries")+`
hostname: xf10idc-ioc1
engineer: J. Doe
ca_address: 10.10.0.255
platform: linux
iocs:
  - type: motorNewFocus
    name: pico97
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
`), 0644)).To(Succeed())

				loader = &config.Loader{YAML: libbuildpack.NewYAML(), Log: logger}
			})

			JustBeforeEach(func() {
				run, err = loader.Load(path)
			})

			It("resolves the globals", func() {
				Expect(err).To(BeNil())
				Expect(run.Global.IOCDir).To(Equal("/epics/iocs"))
				Expect(run.Global.Hostname).To(Equal("xf10idc-ioc1"))
				Expect(run.Global.Engineer).To(Equal("J. Doe"))
				Expect(run.Global.CAAddress).To(Equal("10.10.0.255"))
				Expect(run.Global.TemplateURL).To(Equal(config.DefaultTemplateURL))
				Expect(run.Global.Platform).To(Equal(config.Linux()))
			})

			It("detects stacked binaries", func() {
				Expect(run.Global.Flat).To(BeFalse())
				Expect(buffer.String()).To(ContainSubstring("-----> Using stacked binary structure in"))
			})

			It("keeps the requests in file order", func() {
				Expect(run.Requests).To(Equal([]config.InstanceRequest{
					{DriverType: "motorNewFocus", Name: "pico97", Prefix: "XF:10IDC-CT", Port: "4050", Connection: "10.0.0.5", Number: 37},
					{DriverType: "motorSmarAct", Name: "smaract01", Prefix: "XF:10IDC-CT", Port: "4051", Connection: "NA", Number: 1},
				}))
			})

			It("uses the default driver registry", func() {
				Expect(run.Drivers.Names()).To(Equal([]string{"motorNewFocus"}))
			})
		})

		Context("with a mocked parser", func() {
			var file config.File

			BeforeEach(func() {
				path = "/epics/CONFIGURE.yml"
				file = config.File{IOCDir: "/epics/iocs", BinaryDir: "/epics/src"}
			})

			JustBeforeEach(func() {
				mockYAML.EXPECT().Load(path, gomock.Any()).DoAndReturn(func(_ string, obj interface{}) error {
					*obj.(*config.File) = file
					return nil
				})

				loader := &config.Loader{YAML: mockYAML, Log: logger}
				run, err = loader.Load(path)
			})

			Context("binary_flat is set", func() {
				BeforeEach(func() {
					flat := true
					file.BinaryFlat = &flat
				})

				It("does not probe the filesystem", func() {
					Expect(err).To(BeNil())
					Expect(run.Global.Flat).To(BeTrue())
					Expect(buffer.String()).To(ContainSubstring("-----> Using flat binary structure in /epics/src"))
				})
			})

			Context("the template and drivers are overridden", func() {
				BeforeEach(func() {
					file.TemplateURL = "https://git.example.org/motor-ioc-template"
					file.Drivers = []string{"motorNewFocus", "motorSmarAct"}
					file.Platform = "windows"
				})

				It("uses the overrides", func() {
					Expect(err).To(BeNil())
					Expect(run.Global.TemplateURL).To(Equal("https://git.example.org/motor-ioc-template"))
					Expect(run.Drivers.Supports("motorSmarAct")).To(BeTrue())
					Expect(run.Global.Platform.Name).To(Equal("windows"))
					Expect(buffer.String()).To(ContainSubstring("-----> Using IOC template https://git.example.org/motor-ioc-template"))
				})
			})

			Context("ioc_dir is missing", func() {
				BeforeEach(func() {
					file.IOCDir = ""
				})

				It("returns an error", func() {
					Expect(err).To(MatchError("ioc_dir must be set"))
				})
			})

			Context("top_binary_dir is missing", func() {
				BeforeEach(func() {
					file.BinaryDir = ""
				})

				It("returns an error", func() {
					Expect(err).To(MatchError("top_binary_dir must be set"))
				})
			})

			Context("the platform is unknown", func() {
				BeforeEach(func() {
					file.Platform = "vxworks"
				})

				It("returns an error", func() {
					Expect(err).To(MatchError(ContainSubstring(`unknown platform "vxworks"`)))
				})
			})
		})

		Context("the parser fails", func() {
			It("returns the parser error", func() {
				mockYAML.EXPECT().Load("CONFIGURE.yml", gomock.Any()).Return(errors.New("yaml: line 3: mapping values are not allowed in this context"))

				loader := &config.Loader{YAML: mockYAML, Log: logger}
				_, err = loader.Load("CONFIGURE.yml")
				Expect(err).To(MatchError(ContainSubstring("mapping values")))
			})
		})

		Context("the file does not exist", func() {
			It("names the missing file", func() {
				loader := &config.Loader{YAML: libbuildpack.NewYAML(), Log: logger}
				_, err = loader.Load(filepath.Join(tmpDir, "missing.yml"))
				Expect(err).To(MatchError(ContainSubstring("missing.yml does not exist")))
			})
		})
	})

	Describe("DetectFlat", func() {
		It("is flat without a support directory", func() {
			Expect(config.DetectFlat(tmpDir)).To(BeTrue())
		})

		It("is stacked with a support directory", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, "support"), 0755)).To(Succeed())
			Expect(config.DetectFlat(tmpDir)).To(BeFalse())
		})
	})

	Describe("InstanceRequest", func() {
		var request config.InstanceRequest

		BeforeEach(func() {
			request = config.InstanceRequest{DriverType: "motorNewFocus", Name: "pico97", Number: 37}
		})

		It("accepts a supported driver", func() {
			Expect(request.Validate(config.DefaultDrivers())).To(Succeed())
		})

		It("rejects an unsupported driver", func() {
			request.DriverType = "motorAcsMotion"
			Expect(request.Validate(config.DefaultDrivers())).To(MatchError(config.ErrUnsupportedDriver))
		})

		It("rejects an empty name", func() {
			request.Name = ""
			Expect(request.Validate(config.DefaultDrivers())).NotTo(Succeed())
		})

		It("rejects a name with a path separator", func() {
			request.Name = "../pico97"
			Expect(request.Validate(config.DefaultDrivers())).NotTo(Succeed())
		})

		It("strips the motor prefix for the suffix", func() {
			Expect(request.Suffix()).To(Equal("NewFocus"))
			Expect(config.DriverSuffix("motorSmarAct")).To(Equal("SmarAct"))
			Expect(config.DriverSuffix("motor")).To(Equal(""))
		})
	})

	Describe("Drivers", func() {
		It("cannot be changed through Names", func() {
			drivers := config.NewDrivers("motorNewFocus")
			names := drivers.Names()
			names[0] = "motorSmarAct"

			Expect(drivers.Supports("motorNewFocus")).To(BeTrue())
			Expect(drivers.Supports("motorSmarAct")).To(BeFalse())
		})

		It("cannot be changed through the constructor argument", func() {
			names := []string{"motorNewFocus"}
			drivers := config.NewDrivers(names...)
			names[0] = "motorSmarAct"

			Expect(drivers.Names()).To(Equal([]string{"motorNewFocus"}))
		})
	})

	Describe("PlatformFor", func() {
		It("resolves known names", func() {
			for name, expected := range map[string]string{"linux": "linux", "darwin": "linux", "windows": "windows", "win32": "windows"} {
				platform, err := config.PlatformFor(name)
				Expect(err).To(BeNil())
				Expect(platform.Name).To(Equal(expected))
			}
		})

		It("uses the host platform for an empty name", func() {
			platform, err := config.PlatformFor("")
			Expect(err).To(BeNil())
			Expect(platform).To(Equal(config.CurrentPlatform()))
		})

		It("only wraps startup scripts on windows", func() {
			Expect(config.Linux().WrapStartup).To(BeFalse())
			Expect(config.Windows().WrapStartup).To(BeTrue())
		})
	})
})
