// Package match scores remote track candidates against cleaned local
// filenames and picks the best one.
package match
