// Package command is the single entry point for control commands coming
// from outside the process, whether over HTTP or MQTT.
//
// It parses loosely typed collaborator input (action and class names,
// corridor and vehicle type IDs), calls the arbitration engine, and maps
// every failure to a stable error code so no rejection is lost.
package command
