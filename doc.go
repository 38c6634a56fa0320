// Package cookieferry migrates Chromium-family browser credentials (cookies
// and saved passwords) between machines. Export decrypts a profile's records
// with the platform's Safe Storage key and seals them into a password-protected
// container; import re-encrypts every record under the destination machine's
// own key and writes it back into the destination profile.
//
// This is intended for local tooling (profile moves, OS reinstalls, machine
// migrations). It reads and writes local browser state, may trigger
// keychain/keyring prompts, and should not be used in server contexts.
package cookieferry
