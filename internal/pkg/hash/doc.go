// Package hash provides keyed digests for values that must later be checked
// without revealing the key, such as rotating display tokens.
package hash
