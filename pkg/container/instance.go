package container

import (
	"fmt"
	"strings"

	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// instance is the handle returned by client.Start.
type instance struct {
	id   types.InstanceID
	name string
}

// ID returns the container ID.
func (i instance) ID() types.InstanceID { return i.id }

// Name returns the container name without the leading slash.
func (i instance) Name() string { return i.name }

// newInstance builds a handle, falling back to the short ID when the runtime name is unknown.
func newInstance(id string, name string) instance {
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		name = types.InstanceID(id).ShortID()
	}

	return instance{id: types.InstanceID(id), name: name}
}

// instanceID extracts the container ID from a handle created by this package.
//
// Handles from other drivers are rejected so that IDs are never sent to the wrong runtime.
func instanceID(inst types.Instance) (string, error) {
	own, ok := inst.(instance)
	if !ok || own.id == "" {
		return "", fmt.Errorf("%w: %T", errForeignInstance, inst)
	}

	return string(own.id), nil
}
