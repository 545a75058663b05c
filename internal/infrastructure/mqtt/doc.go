// Package mqtt provides the gateway's optional local republish bus.
//
// Device cache events are mirrored onto retained state topics so local
// automations (Node-RED, Home Assistant and friends) can observe the
// smart-home server without speaking its TCP protocol, and commands
// published to the command topics are forwarded to the device session.
//
// Topic layout:
//
//	homelink/system/status            gateway online/offline (retained, LWT)
//	homelink/state/<room>/<device>    device state mirror (retained)
//	homelink/command/<device>         inbound device commands
//
// The package wraps paho.mqtt.golang with connection management,
// automatic re-subscription after reconnect, and panic recovery around
// message handlers.
package mqtt
