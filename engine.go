package auth

import (
	"crypto/sha256"

	"github.com/bytemare/opaque"
	goerrors "github.com/goliatone/go-errors"
)

// ServerKeyMaterial holds the long-term OPAQUE server values. All three
// fields are required and must remain stable for the lifetime of every
// registered credential.
type ServerKeyMaterial struct {
	PrivateKey []byte
	PublicKey  []byte
	OPRFSeed   []byte
}

// GenerateServerKeyMaterial creates fresh server key material for the default
// configuration. Run once at install time and persist the output.
func GenerateServerKeyMaterial() ServerKeyMaterial {
	conf := opaque.DefaultConfiguration()
	sk, pk := conf.KeyGen()

	return ServerKeyMaterial{
		PrivateKey: sk,
		PublicKey:  pk,
		OPRFSeed:   conf.GenerateOPRFSeed(),
	}
}

// OpaqueEngine implements Engine on github.com/bytemare/opaque. Each call
// spins up a throwaway protocol instance; the only state that crosses calls
// is the serialized AKE state returned from StartLogin.
type OpaqueEngine struct {
	conf     *opaque.Configuration
	keys     ServerKeyMaterial
	serverID []byte
}

var _ Engine = (*OpaqueEngine)(nil)

type OpaqueEngineOption func(*OpaqueEngine)

// WithServerIdentity sets an explicit server identity for the AKE transcript.
// When unset the protocol falls back to the server public key.
func WithServerIdentity(identity []byte) OpaqueEngineOption {
	return func(e *OpaqueEngine) {
		e.serverID = identity
	}
}

// WithConfiguration overrides the OPAQUE suite. The configuration must match
// the one clients were registered under.
func WithConfiguration(conf *opaque.Configuration) OpaqueEngineOption {
	return func(e *OpaqueEngine) {
		if conf != nil {
			e.conf = conf
		}
	}
}

// NewOpaqueEngine validates the key material up front and fails fast: a
// partially configured engine must never serve traffic.
func NewOpaqueEngine(keys ServerKeyMaterial, opts ...OpaqueEngineOption) (*OpaqueEngine, error) {
	if len(keys.PrivateKey) == 0 || len(keys.PublicKey) == 0 || len(keys.OPRFSeed) == 0 {
		return nil, goerrors.New("incomplete server key material", goerrors.CategoryBadInput)
	}

	e := &OpaqueEngine{
		conf: opaque.DefaultConfiguration(),
		keys: keys,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if _, err := e.conf.Server(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid OPAQUE configuration")
	}

	return e, nil
}

func (e *OpaqueEngine) CreateRegistrationResponse(request []byte, identifier string) ([]byte, error) {
	server, err := e.conf.Server()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to instantiate OPAQUE server")
	}

	req, err := server.Deserialize.RegistrationRequest(request)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse registration request")
	}

	pks, err := server.Deserialize.DecodeAkePublicKey(e.keys.PublicKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode server public key")
	}

	response := server.RegistrationResponse(req, pks, credentialID(identifier), e.keys.OPRFSeed)

	return response.Serialize(), nil
}

func (e *OpaqueEngine) StartLogin(identifier string, loginRequest, record []byte) ([]byte, []byte, error) {
	server, err := e.conf.Server()
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to instantiate OPAQUE server")
	}

	ke1, err := server.Deserialize.KE1(loginRequest)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse login request")
	}

	registration, err := server.Deserialize.RegistrationRecord(record)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse registration record")
	}

	client := &opaque.ClientRecord{
		CredentialIdentifier: credentialID(identifier),
		ClientIdentity:       []byte(identifier),
		RegistrationRecord:   registration,
	}

	ke2, err := server.LoginInit(ke1, e.serverID, e.keys.PrivateKey, e.keys.PublicKey, e.keys.OPRFSeed, client)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to start login exchange")
	}

	return ke2.Serialize(), server.SerializeState(), nil
}

func (e *OpaqueEngine) FinishLogin(proof, state []byte) ([]byte, error) {
	server, err := e.conf.Server()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to instantiate OPAQUE server")
	}

	if err := server.SetAKEState(state); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "failed to restore login state")
	}

	ke3, err := server.Deserialize.KE3(proof)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse login proof")
	}

	if err := server.LoginFinish(ke3); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "client proof did not verify")
	}

	return server.SessionKey(), nil
}

// CreateDecoyRecord runs the full registration protocol for a random
// throwaway identity against a freshly generated, immediately discarded
// server setup. The output is indistinguishable in shape from a real record;
// none of the generated secrets survive the call.
func (e *OpaqueEngine) CreateDecoyRecord() ([]byte, error) {
	client, err := e.conf.Client()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to instantiate OPAQUE client")
	}

	server, err := e.conf.Server()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to instantiate OPAQUE server")
	}

	_, throwawayPK := e.conf.KeyGen()
	throwawaySeed := e.conf.GenerateOPRFSeed()
	throwawayID := opaque.RandomBytes(16)
	throwawayPwd := opaque.RandomBytes(32)

	request := client.RegistrationInit(throwawayPwd)

	req, err := server.Deserialize.RegistrationRequest(request.Serialize())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse decoy registration request")
	}

	pks, err := server.Deserialize.DecodeAkePublicKey(throwawayPK)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode throwaway public key")
	}

	response := server.RegistrationResponse(req, pks, opaque.RandomBytes(64), throwawaySeed)

	resp, err := client.Deserialize.RegistrationResponse(response.Serialize())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse decoy registration response")
	}

	record, _ := client.RegistrationFinalize(resp, opaque.ClientRegistrationFinalizeOptions{
		ClientIdentity: throwawayID,
		ServerIdentity: e.serverID,
	})

	return record.Serialize(), nil
}

// credentialID derives the stable OPRF credential identifier for a protocol
// identifier. It must not change across registration and logins.
func credentialID(identifier string) []byte {
	sum := sha256.Sum256([]byte("credential-id/" + identifier))
	return sum[:]
}
