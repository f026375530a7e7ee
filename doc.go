// Package auth orchestrates an OPAQUE password-authenticated key exchange so
// a server can verify a user's password without ever learning it, and without
// leaking which emails have accounts.
//
// Flows:
//   - RegistrationFlow drives the two-step registration protocol against the
//     aPAKE engine and the account store. The duplicate-email policy is
//     explicit: PolicyEnumerationResistant (default) reports generic success
//     for already-taken emails, PolicySessionOnSignup issues a session token
//     for genuinely new accounts only.
//   - LoginFlow drives the two-step login protocol. Unknown emails are served
//     a decoy credential so the engine performs equivalent work, and the
//     ephemeral server login state travels to the client inside an encrypted,
//     fixed-size Envelope. The server holds no per-login state between the
//     two round trips.
//
// Enumeration resistance:
//   - A wrong password on a real account and any password on a non-existent
//     account terminate in the same ErrAuthenticationFailed, with the same
//     response shape.
//   - The Envelope pads every payload to a fixed target length before
//     encryption, so ciphertext size never reveals whether a real identity
//     snapshot is inside.
//
// The aPAKE primitive itself, durable storage, and session cookie mechanics
// are collaborators behind interfaces; OpaqueEngine, the bun repositories,
// and TokenService are the default implementations.
package auth
