// Package bufgate provides in-process buffer validation for Go
// services. It stages payloads in locked memory, canonicalizes and
// hash-verifies them, scores them with an entropy cost function, and
// classifies them into governance zones. Every decision is appended to
// a hash-chained audit trail.
//
// Usage:
//
//	if err := bufgate.Init(bufgate.WithAuditLog("/var/log/bufgate/audit.log")); err != nil {
//	    log.Fatal(err)
//	}
//	defer bufgate.Cleanup()
//
//	buf, _ := bufgate.NewBuffer(bufgate.WithSecurityLevel(bufgate.LevelHigh))
//	defer buf.Destroy()
//
//	v, _ := bufgate.NewValidator()
//	defer v.Destroy()
//
//	if err := buf.SetData(payload); err != nil {
//	    return err
//	}
//	res, err := v.Validate(buf)
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/bufgate/bufgate/sdk/go/bufgate.
package bufgate
