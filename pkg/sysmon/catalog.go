// forge/pkg/sysmon/catalog.go

package sysmon

import "strings"

// EventType describes a Sysmon event the builder offers, with the fields most
// commonly filtered on.
type EventType struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	CommonFields []string `json:"commonFields"`
}

// EventTypes lists Sysmon events in event-id order. Several ids share a name
// (RegistryEvent, PipeEvent, WmiEvent) because the filter element is shared.
var EventTypes = []EventType{
	{ID: 1, Name: "ProcessCreate", CommonFields: []string{"Image", "CommandLine", "ParentImage", "ParentCommandLine", "User", "Hashes"}},
	{ID: 2, Name: "FileCreateTime", CommonFields: []string{"Image", "TargetFilename", "CreationUtcTime"}},
	{ID: 3, Name: "NetworkConnect", CommonFields: []string{"Image", "User", "Protocol", "SourceIp", "SourcePort", "DestinationIp", "DestinationPort"}},
	{ID: 4, Name: "SysmonStateChange", CommonFields: []string{}},
	{ID: 5, Name: "ProcessTerminate", CommonFields: []string{"Image", "User"}},
	{ID: 6, Name: "DriverLoad", CommonFields: []string{"ImageLoaded", "Signed", "Signature"}},
	{ID: 7, Name: "ImageLoad", CommonFields: []string{"Image", "ImageLoaded", "Signed", "Signature"}},
	{ID: 8, Name: "CreateRemoteThread", CommonFields: []string{"SourceImage", "TargetImage", "StartAddress"}},
	{ID: 9, Name: "RawAccessRead", CommonFields: []string{"Image", "Device"}},
	{ID: 10, Name: "ProcessAccess", CommonFields: []string{"SourceImage", "TargetImage", "GrantedAccess"}},
	{ID: 11, Name: "FileCreate", CommonFields: []string{"Image", "TargetFilename"}},
	{ID: 12, Name: "RegistryEvent", CommonFields: []string{"EventType", "TargetObject", "Image"}},
	{ID: 13, Name: "RegistryEvent", CommonFields: []string{"EventType", "TargetObject", "Details", "Image"}},
	{ID: 14, Name: "RegistryEvent", CommonFields: []string{"EventType", "TargetObject", "Image"}},
	{ID: 15, Name: "FileCreateStreamHash", CommonFields: []string{"Image", "TargetFilename"}},
	{ID: 17, Name: "PipeEvent", CommonFields: []string{"EventType", "PipeName", "Image"}},
	{ID: 18, Name: "PipeEvent", CommonFields: []string{"EventType", "PipeName", "Image"}},
	{ID: 19, Name: "WmiEvent", CommonFields: []string{"EventType", "User", "Operation", "Query"}},
	{ID: 20, Name: "WmiEvent", CommonFields: []string{"EventType", "User", "Operation", "Query"}},
	{ID: 21, Name: "WmiEvent", CommonFields: []string{"EventType", "User", "Operation", "Query"}},
	{ID: 22, Name: "DnsQuery", CommonFields: []string{"QueryName", "Image", "QueryStatus", "QueryResults"}},
	{ID: 23, Name: "FileDelete", CommonFields: []string{"Image", "TargetFilename", "IsExecutable"}},
	{ID: 24, Name: "ClipboardChange", CommonFields: []string{"Image", "Session", "ClientInfo"}},
	{ID: 25, Name: "ProcessTampering", CommonFields: []string{"Image", "Type", "TargetImage"}},
	{ID: 26, Name: "FileDeleteDetected", CommonFields: []string{"Image", "TargetFilename", "IsExecutable"}},
}

// ConditionTypes are the human-readable condition operators the builder offers.
var ConditionTypes = []string{
	"is",
	"is not",
	"is any",
	"contains",
	"contains any",
	"contains all",
	"excludes",
	"excludes any",
	"excludes all",
	"begin with",
	"not begin with",
	"end with",
	"not end with",
	"less than",
	"more than",
	"image",
}

// IsKnownEventType reports whether name is one of the catalog's event names.
func IsKnownEventType(name string) bool {
	for _, et := range EventTypes {
		if et.Name == name {
			return true
		}
	}
	return false
}

// FieldsFor returns the common fields of the first catalog entry named eventType.
func FieldsFor(eventType string) []string {
	for _, et := range EventTypes {
		if et.Name == eventType {
			return et.CommonFields
		}
	}
	return nil
}

// IsKnownConditionType compares ignoring whitespace and case, so both
// "contains any" and "containsany" are known.
func IsKnownConditionType(ct string) bool {
	stripped := StripConditionType(ct)
	for _, known := range ConditionTypes {
		if strings.EqualFold(StripConditionType(known), stripped) {
			return true
		}
	}
	return false
}

// ConditionLabel maps an emitted condition attribute ("containsany") back to the
// catalog label ("contains any"). The match is case-sensitive; anything else,
// including "Is", comes back unchanged.
func ConditionLabel(attr string) string {
	for _, ct := range ConditionTypes {
		if StripConditionType(ct) == attr {
			return ct
		}
	}
	return attr
}
