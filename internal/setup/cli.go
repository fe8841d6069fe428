package setup

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// CLI provides the "setup" subcommand of the MCP server binary.
type CLI struct {
	// ConfigPath overrides the detected client config file
	ConfigPath string
	out        io.Writer
	reader     *bufio.Reader
}

// NewCLI creates a setup CLI writing to out and prompting on in.
func NewCLI(in io.Reader, out io.Writer) *CLI {
	return &CLI{out: out, reader: bufio.NewReader(in)}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		c.showHelp()
		return nil
	}

	switch args[0] {
	case "register":
		return c.register(args[1:])
	case "unregister":
		return c.unregister()
	case "status":
		return c.showStatus()
	case "help", "--help", "-h":
		c.showHelp()
		return nil
	default:
		c.showHelp()
		return fmt.Errorf("unknown setup command: %s", args[0])
	}
}

func (c *CLI) configPath() (string, error) {
	if c.ConfigPath != "" {
		return c.ConfigPath, nil
	}
	return DefaultConfigPath()
}

// showHelp displays usage information.
func (c *CLI) showHelp() {
	fmt.Fprint(c.out, `Specialist Recommender MCP setup

Usage:
  mcp-server setup <command> [options]

Commands:
  register     Register this server with the desktop MCP client
  unregister   Remove the registration
  status       Show the current registration

Register options:
  -binary <path>   server binary (default: this executable)
  -config <path>   service config file passed to the server
  -y               do not ask for confirmation
`)
}

// register adds the server to the client config.
func (c *CLI) register(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.out)
	binary := fs.String("binary", "", "server binary")
	configFile := fs.String("config", "", "service config file")
	yes := fs.Bool("y", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *binary == "" {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		*binary = execPath
	}
	path, err := c.configPath()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Config file:   %s\n", path)
	fmt.Fprintf(c.out, "Server binary: %s\n", *binary)
	if *configFile != "" {
		fmt.Fprintf(c.out, "Service config: %s\n", *configFile)
	}

	if !*yes {
		fmt.Fprint(c.out, "Proceed? [Y/n]: ")
		response, _ := c.reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			fmt.Fprintln(c.out, "Registration cancelled.")
			return nil
		}
	}

	if _, err := Register(path, Options{BinaryPath: *binary, ConfigFile: *configFile}); err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}
	fmt.Fprintf(c.out, "Registered %q. Restart the MCP client to pick it up.\n", ServerName)
	return nil
}

func (c *CLI) unregister() error {
	path, err := c.configPath()
	if err != nil {
		return err
	}
	removed, err := Unregister(path)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(c.out, "Removed %q from %s\n", ServerName, path)
	} else {
		fmt.Fprintf(c.out, "%q was not registered in %s\n", ServerName, path)
	}
	return nil
}

// showStatus displays the current registration status.
func (c *CLI) showStatus() error {
	path, err := c.configPath()
	if err != nil {
		return err
	}
	status, err := GetStatus(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Config file: %s\n", status.ConfigPath)
	if status.Registered {
		fmt.Fprintf(c.out, "Registered:  yes (%s)\n", status.Entry.Command)
	} else {
		fmt.Fprintln(c.out, "Registered:  no")
	}
	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}
