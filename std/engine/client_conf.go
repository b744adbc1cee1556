package engine

import (
	"bufio"
	"os"
	"runtime"
	"strings"
)

type ClientConfig struct {
	TransportUri string
}

// GetClientConfig resolves the forwarder transport URI. The platform default
// is overridden by client.conf files, then by NDN_CLIENT_TRANSPORT.
func GetClientConfig() ClientConfig {
	// Default configuration
	transportUri := "unix:///run/nfd/nfd.sock"
	if runtime.GOOS == "darwin" {
		transportUri = "unix:///var/run/nfd/nfd.sock"
	}
	config := ClientConfig{
		TransportUri: transportUri,
	}

	// Order of increasing priority
	configDirs := []string{
		"/etc/ndn",
		"/usr/local/etc/ndn",
		os.Getenv("HOME") + "/.ndn",
	}

	for _, dir := range configDirs {
		if transport, ok := readClientConf(dir + "/client.conf"); ok {
			config.TransportUri = transport
		}
	}

	// Environment variable overrides config file
	if transportEnv := os.Getenv("NDN_CLIENT_TRANSPORT"); transportEnv != "" {
		config.TransportUri = transportEnv
	}

	return config
}

func readClientConf(filename string) (transport string, ok bool) {
	file, err := os.Open(filename)
	if err != nil {
		return "", false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, ";") { // comment
			continue
		}
		if t := strings.TrimPrefix(line, "transport="); t != line {
			transport, ok = t, true
		}
	}
	return
}
