/*
Copyright © 2026 the StormPop authors.
This file is part of StormPop.

StormPop is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

StormPop is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with StormPop.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command stormpop is a command-line interface for estimating population
// exposure to tropical cyclone wind bands.
package main

import (
	"fmt"
	"os"

	"github.com/spatialrisk/stormpop/stormpoputil"
)

func main() {
	if err := stormpoputil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
