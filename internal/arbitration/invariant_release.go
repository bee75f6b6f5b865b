//go:build !arbitrationdebug

package arbitration

const debugAssertions = false
