package pipe

import "strconv"

// DefaultPrefix is the channel name prefix shared by host and renderer.
const DefaultPrefix = "overlay_event_pipe_"

// InstanceName builds the channel name for one renderer instance flag.
func InstanceName(prefix string, flag uint32) string {
	return Name(prefix, strconv.FormatUint(uint64(flag), 10))
}
