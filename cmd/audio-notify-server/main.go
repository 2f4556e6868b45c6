package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"audio-notify-server-go/internal/bootstrap"
	"audio-notify-server-go/internal/domain/process"
	"audio-notify-server-go/internal/domain/sound"
	"audio-notify-server-go/internal/domain/speech"
	platformconfig "audio-notify-server-go/internal/platform/config"
	platformlogging "audio-notify-server-go/internal/platform/logging"
	"audio-notify-server-go/internal/platform/netif"
)

func main() {
	var (
		configPath     = flag.String("config", "", "path to config.yaml (optional)")
		host           = flag.String("host", "", "address to bind (default 127.0.0.1)")
		port           = flag.Int("port", 0, "port to listen on (default 51515)")
		ifaceName      = flag.String("interface", "", "bind to the IPv4 address of this network interface")
		ifacePrefix    = flag.String("interface-prefix", "", "bind to the first interface whose name starts with this prefix")
		soundFile      = flag.String("sound", "", "custom notification sound file")
		debug          = flag.Bool("debug", false, "enable debug logging")
		listInterfaces = flag.Bool("list-interfaces", false, "list network interfaces and exit")
		listVoicesFlag = flag.Bool("list-voices", false, "list ElevenLabs voices and exit")
	)
	flag.Parse()

	if *listInterfaces {
		if err := printInterfaces(); err != nil {
			fmt.Fprintf(os.Stderr, "audio-notify-server: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listVoicesFlag {
		if err := printVoices(); err != nil {
			fmt.Fprintf(os.Stderr, "audio-notify-server: %v\n", err)
			os.Exit(1)
		}
		return
	}

	bindHost, err := resolveBindHost(*host, *ifaceName, *ifacePrefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audio-notify-server: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("[%s] [INFO] [BOOT] starting audio-notify-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	opts := bootstrap.Options{
		ConfigPath: *configPath,
		Host:       bindHost,
		Port:       *port,
		SoundFile:  *soundFile,
		Debug:      *debug,
	}
	if err := bootstrap.Run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "audio-notify-server failed: %v\n", err)
		os.Exit(1)
	}
}

// resolveBindHost applies the flag precedence: interface prefix wins
// over interface name, which wins over an explicit host.
func resolveBindHost(host, ifaceName, ifacePrefix string) (string, error) {
	if ifacePrefix != "" {
		interfaces, err := netif.List()
		if err != nil {
			return "", fmt.Errorf("enumerate interfaces: %w", err)
		}
		iface, ok := netif.FirstByPrefix(interfaces, ifacePrefix)
		if !ok {
			return "", fmt.Errorf("no interface with an IPv4 address matches prefix %q", ifacePrefix)
		}
		return iface.IP, nil
	}
	if ifaceName != "" {
		interfaces, err := netif.List()
		if err != nil {
			return "", fmt.Errorf("enumerate interfaces: %w", err)
		}
		ip, ok := netif.IPByName(interfaces, ifaceName)
		if !ok {
			return "", fmt.Errorf("interface %q not found or has no IPv4 address", ifaceName)
		}
		return ip, nil
	}
	return host, nil
}

func printInterfaces() error {
	interfaces, err := netif.List()
	if err != nil {
		return err
	}
	fmt.Println("Available network interfaces:")
	for _, iface := range interfaces {
		fmt.Printf("  %-12s %s\n", iface.Name, iface.IP)
	}
	return nil
}

func printVoices() error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    "error",
		Dir:      os.TempDir(),
		Filename: platformlogging.DefaultFilename,
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	runner := process.NewExecutor(nil, logger)
	player := sound.NewPlayer(runner, logger)
	resolver := platformconfig.NewSpeechResolver(logger)
	synth := speech.NewSynthesizer(runner, player, resolver, logger)

	ctx, cancel := context.WithTimeout(context.Background(), speech.ElevenLabsTimeout)
	defer cancel()

	voices, err := synth.ListVoices(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Available ElevenLabs voices:")
	for _, voice := range voices {
		fmt.Printf("  %-24s %s\n", voice.VoiceID, voice.Name)
	}
	return nil
}
