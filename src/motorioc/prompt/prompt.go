package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
)

// Prompter asks for the same settings a CONFIGURE.yml provides, one answer per line.
type Prompter struct {
	in      *bufio.Reader
	out     io.Writer
	drivers config.Drivers
}

func New(in io.Reader, out io.Writer, drivers config.Drivers) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, drivers: drivers}
}

func (p *Prompter) Global(platform config.Platform) (config.Global, error) {
	var global config.Global
	var err error

	questions := []struct {
		text string
		dest *string
	}{
		{"Enter the ioc output location.", &global.IOCDir},
		{"Enter the location of your compiled binaries.", &global.BinaryDir},
		{"Enter the IOC server hostname.", &global.Hostname},
		{"Enter your name and contact information.", &global.Engineer},
		{"Enter the CA_ADDRESS IP.", &global.CAAddress},
	}
	for _, q := range questions {
		if *q.dest, err = p.ask(q.text); err != nil {
			return config.Global{}, err
		}
	}

	global.Flat = config.DetectFlat(global.BinaryDir)
	global.TemplateURL = config.DefaultTemplateURL
	global.Platform = platform
	return global, nil
}

func (p *Prompter) Request() (config.InstanceRequest, error) {
	var request config.InstanceRequest
	var err error

	for request.DriverType == "" {
		if request.DriverType, err = p.ask("What driver type would you like to generate?"); err != nil {
			return config.InstanceRequest{}, err
		}
		if !p.drivers.Supports(request.DriverType) {
			request.DriverType = ""
			fmt.Fprintln(p.out, "The selected driver type is not supported. See list of supported drivers below.")
			PrintDrivers(p.out, p.drivers)
		}
	}

	if request.Name, err = p.ask("What should the IOC name be?"); err != nil {
		return config.InstanceRequest{}, err
	}

	for {
		answer, err := p.ask("What should the motion controller number be? (ex. 37)")
		if err != nil {
			return config.InstanceRequest{}, err
		}
		if request.Number, err = strconv.Atoi(strings.TrimPrefix(answer, "MC:")); err == nil {
			break
		}
		fmt.Fprintf(p.out, "%s is not a valid controller number.\n", answer)
	}

	if request.Prefix, err = p.ask("What should the controller prefix be? (ex. XF:10IDC-CT)"); err != nil {
		return config.InstanceRequest{}, err
	}
	if request.Port, err = p.ask("What telnet port should procServer use to run the IOC?"); err != nil {
		return config.InstanceRequest{}, err
	}
	if request.Connection, err = p.ask("Enter the connection param for your device. (ex. IP, serial number etc.) enter NA if not sure."); err != nil {
		return config.InstanceRequest{}, err
	}

	return request, nil
}

func (p *Prompter) Another() (bool, error) {
	answer, err := p.ask("Would you like to generate another IOC? (y/n).")
	if err != nil {
		return false, err
	}
	return answer == "y", nil
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprintf(p.out, "%s > ", question)

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func PrintDrivers(out io.Writer, drivers config.Drivers) {
	fmt.Fprintln(out, "Supported Drivers:")
	fmt.Fprintln(out, "+-----------------------------+")
	for _, name := range drivers.Names() {
		fmt.Fprintf(out, "+ %s\n", name)
	}
	fmt.Fprintln(out)
}
