package config

import (
	"net"
	"os"
	"strings"
	"sync"
)

// dockerHostAlias reaches services published on the Docker host.
const dockerHostAlias = "host.docker.internal"

var inDocker = sync.OnceValue(func() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
})

// IsRunningInDocker reports whether /.dockerenv exists. The answer is cached.
func IsRunningInDocker() bool {
	return inDocker()
}

// ResolveHostForDocker rewrites loopback hosts to the Docker host alias when the
// engine runs inside a container, so a database or entity store on the
// developer's machine stays reachable. Other hosts pass through.
func ResolveHostForDocker(host string) string {
	return resolveHost(host, IsRunningInDocker())
}

func resolveHost(host string, containerized bool) string {
	if !containerized || !isLoopback(host) {
		return host
	}
	return dockerHostAlias
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}
