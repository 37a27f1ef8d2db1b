package bridge

// Version is the bridge's own release version. It is embedded in the
// published tool description next to the probed agent CLI version.
const Version = "0.1.0"
