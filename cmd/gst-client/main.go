// Command gst-client sends commands to a running gstd over TCP. With
// arguments it runs them as one command and exits; without arguments it
// reads commands from stdin.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"gstd/pkg/parser"
	"gstd/pkg/tcp"
)

const prompt = "gstd> "

// Client is one TCP connection to the daemon
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// Dial connects to the daemon at addr
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn), timeout: timeout}, nil
}

// Send writes command and returns the reply without its terminator
func (c *Client) Send(command string) (string, error) {
	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return "", err
		}
	}
	if _, err := c.conn.Write([]byte(command)); err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}
	reply, err := c.reader.ReadString(tcp.Terminator)
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	return strings.TrimSuffix(reply, string(rune(tcp.Terminator))), nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	for _, usage := range parser.Usage() {
		fmt.Fprintln(w, "  "+usage)
	}
	fmt.Fprintln(w, "  help")
	fmt.Fprintln(w, "  quit")
}

// interactive reads one command per line from in until EOF or quit
func interactive(c *Client, in io.Reader, out io.Writer, showPrompt bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), tcp.MaxCommandSize)
	for {
		if showPrompt {
			fmt.Fprint(out, prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "help":
			printHelp(out)
			continue
		}
		reply, err := c.Send(line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply)
	}
}

func main() {
	fs := pflag.NewFlagSet("gst-client", pflag.ContinueOnError)
	address := fs.StringP("address", "a", "127.0.0.1", "Address of the gstd TCP server")
	port := fs.IntP("port", "p", 5000, "Port of the gstd TCP server")
	timeout := fs.DurationP("timeout", "t", 0, "Reply timeout, 0 waits forever")
	quiet := fs.BoolP("quiet", "q", false, "Do not print the interactive prompt")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	c, err := Dial(net.JoinHostPort(*address, strconv.Itoa(*port)), *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	if fs.NArg() > 0 {
		reply, err := c.Send(strings.Join(fs.Args(), " "))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(reply)
		return
	}

	if err := interactive(c, os.Stdin, os.Stdout, !*quiet); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
