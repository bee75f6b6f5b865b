//go:build arbitrationdebug

package arbitration

const debugAssertions = true
