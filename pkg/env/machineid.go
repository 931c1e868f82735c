// Package env provides facts about the host the gateway runs on.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "wirefree"

// MachineID retrieves the unique ID identifying the machine, hashed with
// the application id so the raw id isn't exposed.
func MachineID() (string, error) {
	return machineid.ProtectedID(appID)
}

// GatewayID identifies this gateway on the bus. It falls back to the host
// name when the machine id is unavailable.
func GatewayID() string {
	id, err := MachineID()
	if err == nil {
		return id
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return appID
}
