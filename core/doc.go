// Package core contains the security repository contracts and the components
// that turn endpoint input and access credentials into token requests.
// Transport, encryption and storage adapters depend on this package; core must
// not depend on any of them.
package core
