// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"encoding/json"

	"github.com/matrixorigin/mocatalog/pkg/catalog/chain"
	"github.com/matrixorigin/mocatalog/pkg/common/moerr"
)

// AlterRecord is what an alter leaves in the undo buffer next to the
// replaced entry.
type AlterRecord struct {
	ColumnName string `json:"column_name"`
	AlterInfo  []byte `json:"alter_info"`
}

func encodeAlterRecord(info chain.AlterInfo) ([]byte, error) {
	payload, err := info.Marshal()
	if err != nil {
		return nil, moerr.ConvertGoError(moerr.Context(), err)
	}
	data, err := json.Marshal(AlterRecord{
		ColumnName: info.ColumnName(),
		AlterInfo:  payload,
	})
	if err != nil {
		return nil, moerr.ConvertGoError(moerr.Context(), err)
	}
	return data, nil
}

func DecodeAlterRecord(data []byte) (AlterRecord, error) {
	var record AlterRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return AlterRecord{}, moerr.NewInternalError(moerr.Context(), "bad alter record: %v", err)
	}
	return record, nil
}
