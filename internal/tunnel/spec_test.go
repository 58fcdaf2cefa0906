package tunnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgsTCPForward(t *testing.T) {
	spec := Spec{
		SSHHost:       "miniserver.local",
		TargetName:    "analytics-web",
		LocalAddress:  "127.0.0.1",
		LocalPort:     8080,
		RemoteAddress: "127.0.0.1",
		RemotePort:    8080,
	}

	assert.Equal(t,
		[]string{"-v", "-NL", "127.0.0.1:8080:127.0.0.1:8080", "miniserver.local"},
		spec.Args())
}

func TestArgsSocketForward(t *testing.T) {
	spec := Spec{
		SSHHost:      "miniserver.remote",
		TargetName:   "docker-sock",
		LocalSocket:  "/tmp/docker.sock",
		RemoteSocket: "/var/run/docker.sock",
	}

	assert.True(t, spec.IsSocket())
	assert.Equal(t,
		[]string{"-v", "-NL", "/tmp/docker.sock:/var/run/docker.sock", "miniserver.remote"},
		spec.Args())
}

func TestArgsVerbosity(t *testing.T) {
	spec := Spec{
		SSHHost:       "host",
		LocalAddress:  "127.0.0.1",
		LocalPort:     80,
		RemoteAddress: "10.0.0.1",
		RemotePort:    80,
		Verbose:       "vvv",
	}

	assert.Equal(t, "-vvv", spec.Args()[0])
}

func TestLocalRemoteRendering(t *testing.T) {
	tests := []struct {
		name   string
		spec   Spec
		local  string
		remote string
	}{
		{
			name: "tcp endpoints",
			spec: Spec{
				LocalAddress: "127.0.0.1", LocalPort: 5432,
				RemoteAddress: "172.18.0.2", RemotePort: 5432,
			},
			local:  "127.0.0.1:5432",
			remote: "172.18.0.2:5432",
		},
		{
			name:   "socket endpoints",
			spec:   Spec{LocalSocket: "/tmp/a.sock", RemoteSocket: "/var/run/a.sock"},
			local:  "/tmp/a.sock",
			remote: "/var/run/a.sock",
		},
		{
			name:   "port zero yields empty endpoint",
			spec:   Spec{LocalAddress: "127.0.0.1", RemoteAddress: "10.0.0.1", RemotePort: 443},
			local:  "",
			remote: "10.0.0.1:443",
		},
		{
			name:   "missing address yields empty endpoint",
			spec:   Spec{LocalPort: 8080},
			local:  "",
			remote: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.local, tt.spec.Local())
			assert.Equal(t, tt.remote, tt.spec.Remote())
		})
	}
}
