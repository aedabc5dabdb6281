// Package textutil sanitizes strings for use as file and directory names.
package textutil
