package config

import (
	"os"
	"strings"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the process runs inside a Docker container.
// Detection is based on /.dockerenv and the result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker points loopback database hosts at the Docker host
// when askdb itself runs in a container. Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	return rewriteLoopback(host, IsRunningInDocker())
}

func rewriteLoopback(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return "host.docker.internal"
	}
	return host
}
