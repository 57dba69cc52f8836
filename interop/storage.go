package interop

// KVGetRequest reads one key from the instance store.
type KVGetRequest struct {
	Key string `cbor:"key"`
}

type KVGetResponse struct {
	Value string `cbor:"value,omitempty"`
	Found bool   `cbor:"found,omitempty"`
}

func (KVGetRequest) Opcode() Opcode      { return OpKVGet }
func (KVGetRequest) reply(KVGetResponse) {}

type KVSetRequest struct {
	Key   string `cbor:"key"`
	Value string `cbor:"value"`
}

func (KVSetRequest) Opcode() Opcode { return OpKVSet }
func (KVSetRequest) reply(Unit)     {}

type KVDeleteRequest struct {
	Key string `cbor:"key"`
}

func (KVDeleteRequest) Opcode() Opcode { return OpKVDelete }
func (KVDeleteRequest) reply(Unit)     {}

type KVKeysRequest struct{}

type KVKeysResponse struct {
	Keys []string `cbor:"keys"`
}

func (KVKeysRequest) Opcode() Opcode       { return OpKVKeys }
func (KVKeysRequest) reply(KVKeysResponse) {}
