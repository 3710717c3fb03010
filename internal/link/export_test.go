package link

var ParseDevices = parseDevices
