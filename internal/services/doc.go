// Package services loads the port-to-service-name table used to label open
// ports. The format is the one nmap ships as nmap-services.
package services
